package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`cb(["SUCCESS",[]])`))
	}))
	defer srv.Close()

	c := NewClient(0)
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `cb(["SUCCESS",[]])`, body)
}

func TestGetNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(0)
	_, err := c.Get(context.Background(), srv.URL)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusServiceUnavailable, terr.Status)
	assert.Contains(t, terr.Error(), "status 503")
}

func TestGetNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(0)
	_, err := c.Get(context.Background(), srv.URL)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.Status)
	assert.Error(t, terr.Unwrap())
}

func TestGetCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	c := NewClient(time.Minute)
	go func() {
		_, err := c.Get(ctx, srv.URL)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}
}
