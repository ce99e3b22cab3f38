// Package decode extracts candidate lists from the provider's
// callback-wrapped responses.
//
// The provider answers JSONP-style: an optional comment marker, a callback
// identifier, and a parenthesized JSON array, e.g.
//
//	/*API*/_callbacks____cantotype(["SUCCESS",[["nei",["你","呢"],[],{}]]])
//
// The array's first element is a status string; the second is a list of
// candidate groups. Each well-formed group is an array whose second element
// is the list of suggestion strings. Groups of any other shape carry
// provider metadata and are skipped without error.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// statusSuccess is the provider's success sentinel.
const statusSuccess = "SUCCESS"

// Decoding failures, from outermost to innermost.
var (
	// ErrMalformedEnvelope means no callback-invocation envelope was found.
	ErrMalformedEnvelope = errors.New("decode: response is not a callback invocation")

	// ErrMalformedPayload means the parenthesized payload is not valid JSON.
	ErrMalformedPayload = errors.New("decode: payload is not valid JSON")

	// ErrUnexpectedShape means the JSON parsed but is not the expected
	// two-element response array.
	ErrUnexpectedShape = errors.New("decode: unexpected payload shape")
)

// ProviderError reports a non-success status from the provider.
type ProviderError struct {
	Status string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("decode: provider returned status %q", e.Status)
}

var (
	// strictEnvelope requires the whole response to be a callback
	// invocation: optional comment marker, identifier, parenthesized
	// payload, nothing else.
	strictEnvelope = regexp.MustCompile(`(?s)^\s*(?:/\*.*?\*/)?\s*[\w$.]+\((.*)\)[;\s]*$`)

	// looseEnvelope tolerates any prefix before the final parenthesized
	// payload.
	looseEnvelope = regexp.MustCompile(`(?s)^.*\((.*)\)[;\s]*$`)
)

// Candidates decodes body and returns the concatenation, in encounter
// order, of every valid group's suggestions. An empty data payload yields
// an empty (nil) slice and no error.
func Candidates(body string) ([]string, error) {
	payload, err := extractPayload(body)
	if err != nil {
		return nil, err
	}

	var envelope []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, ErrUnexpectedShape
	}
	if len(envelope) < 2 {
		return nil, ErrUnexpectedShape
	}

	var status string
	if err := json.Unmarshal(envelope[0], &status); err != nil {
		return nil, ErrUnexpectedShape
	}
	if status != statusSuccess {
		return nil, &ProviderError{Status: status}
	}

	var groups []json.RawMessage
	if err := json.Unmarshal(envelope[1], &groups); err != nil {
		return nil, ErrUnexpectedShape
	}

	var out []string
	for _, raw := range groups {
		var group []json.RawMessage
		if err := json.Unmarshal(raw, &group); err != nil || len(group) < 2 {
			continue // metadata group, skip
		}
		var members []string
		if err := json.Unmarshal(group[1], &members); err != nil {
			continue
		}
		out = append(out, members...)
	}
	return out, nil
}

// extractPayload strips the callback envelope and returns the inner text,
// verifying it is syntactically valid JSON.
func extractPayload(body string) (string, error) {
	m := strictEnvelope.FindStringSubmatch(body)
	if m == nil {
		m = looseEnvelope.FindStringSubmatch(body)
	}
	if m == nil {
		return "", ErrMalformedEnvelope
	}
	if !json.Valid([]byte(m[1])) {
		return "", ErrMalformedPayload
	}
	return m[1], nil
}
