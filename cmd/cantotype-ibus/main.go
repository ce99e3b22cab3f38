//go:build linux

// cantotype-ibus is the Linux IBus engine for cantotype.
//
// It connects to the IBus daemon via D-Bus, composes Cantonese syllables
// typed on a Latin keyboard, and commits the selected characters to the
// focused application.
//
// Installation:
//  1. Copy binary to /usr/local/bin/cantotype-ibus
//  2. Run: cantotype-ibus -install
//  3. Restart IBus: ibus restart
//  4. Enable via: ibus-setup or GNOME Settings > Keyboard > Input Sources
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"cantotype/internal/config"
	"cantotype/internal/fetch"
	"cantotype/internal/history"
	"cantotype/internal/ime"
	"cantotype/internal/locator"
	"cantotype/internal/logging"
)

const (
	engineInterface = "org.freedesktop.IBus.Engine"
	enginePath      = "/org/freedesktop/IBus/Engine"

	cantotypeBusName = "com.cantotype.IBus"
)

func main() {
	installFlag := flag.Bool("install", false, "Install IBus component")
	uninstallFlag := flag.Bool("uninstall", false, "Uninstall IBus component")
	configPath := flag.String("config", "", "Config file path")
	flag.Parse()

	if *installFlag {
		if err := installComponent(); err != nil {
			fmt.Fprintf(os.Stderr, "install failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Installed. Run 'ibus restart' to load.")
		return
	}

	if *uninstallFlag {
		if err := uninstallComponent(); err != nil {
			fmt.Fprintf(os.Stderr, "uninstall failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Uninstalled.")
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cantotype-ibus: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, _, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger, err := logging.New(&logging.Config{
		Level:     level,
		Output:    "file",
		FilePath:  cfg.Logging.FilePath,
		Component: "ibus",
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
		}
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(cantotypeBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", cantotypeBusName)
	}

	eng := newEngine(conn, cfg, store, logger)
	defer eng.close()

	if err := conn.Export(eng, enginePath, engineInterface); err != nil {
		return fmt.Errorf("export engine: %w", err)
	}

	logger.Info("ibus engine started", "bus_name", cantotypeBusName)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	return nil
}

// engine implements the IBus Engine D-Bus interface around an
// ime.Controller. godbus dispatches each method call on its own
// goroutine, so all mutable state is guarded by mu.
type engine struct {
	conn       *dbus.Conn
	controller *ime.Controller
	log        *logging.Logger

	mu      sync.Mutex
	line    string
	enabled bool
}

func newEngine(conn *dbus.Conn, cfg *config.Config, store *history.Store, logger *logging.Logger) *engine {
	e := &engine{conn: conn, log: logger}

	builder := locator.NewBuilder(locator.Options{
		Endpoint:     cfg.Provider.Endpoint,
		InputTool:    cfg.Provider.InputTool,
		CandidateCap: cfg.Provider.CandidateCap,
		CallbackName: cfg.Provider.CallbackName,
		CacheSize:    cfg.Input.CacheSize,
	})
	client := fetch.NewClient(time.Duration(cfg.Provider.TimeoutMs) * time.Millisecond)

	e.controller = ime.NewController(ime.Options{
		Builder:       builder,
		Fetcher:       client,
		PageSize:      cfg.Input.PageSize,
		DebounceShort: time.Duration(cfg.Input.DebounceShortMs) * time.Millisecond,
		DebounceLong:  time.Duration(cfg.Input.DebounceLongMs) * time.Millisecond,
		Simplified:    cfg.Output.Simplified,
		Logger:        logger.Logger,
		OnUpdate:      e.onUpdate,
		OnCommit: func(sel ime.Selection) {
			if store == nil {
				return
			}
			err := store.Record(history.Entry{
				Query:     sel.Query,
				Retained:  sel.Retained,
				Candidate: sel.Candidate,
				PageIndex: sel.PageIndex,
				Position:  sel.Position,
			})
			if err != nil {
				logger.Warn("record selection", "error", err)
			}
		},
	})

	return e
}

func (e *engine) close() {
	e.controller.Close()
}

// onUpdate pushes the current composition to the client as preedit text.
// It runs on controller goroutines and touches no engine state; the buffer
// mirror is maintained synchronously by setBuffer instead.
func (e *engine) onUpdate(snap ime.Snapshot) {
	e.updatePreedit(snap)
}

func (e *engine) updatePreedit(snap ime.Snapshot) {
	if e.conn == nil {
		return
	}
	text := snap.Committed
	for _, c := range snap.Candidates {
		text += fmt.Sprintf("  %d.%s", c.Position, c.Text)
	}
	// Candidates ride in the preedit string; the IBusLookupTable variant
	// protocol is a separate surface this engine does not speak.
	err := e.conn.Emit(enginePath, engineInterface+".UpdatePreeditText",
		text, uint32(len(snap.Committed)), len(text) > 0)
	if err != nil {
		e.log.Warn("emit preedit", "error", err)
	}
}

func (e *engine) commit(text string) {
	if text == "" || e.conn == nil {
		return
	}
	if err := e.conn.Emit(enginePath, engineInterface+".CommitText", text); err != nil {
		e.log.Warn("emit commit", "error", err)
	}
}

// setBuffer pushes text to the controller and re-reads the authoritative
// buffer, picking up control-digit mutations. Caller holds e.mu.
func (e *engine) setBuffer(text string) {
	e.controller.OnBufferChange(text)
	e.line = e.controller.Snapshot().Buffer
}

// ProcessKeyEvent handles key press/release events. Returns true when the
// key was consumed by the composition.
func (e *engine) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	isRelease := (state & (1 << 30)) != 0
	if isRelease {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return false, nil
	}

	switch keyval {
	case 0xff08: // BackSpace
		if e.line == "" {
			return false, nil
		}
		runes := []rune(e.line)
		e.setBuffer(string(runes[:len(runes)-1]))
		return true, nil

	case 0xff0d: // Return
		if e.line == "" {
			return false, nil
		}
		e.commit(e.controller.Snapshot().Committed)
		e.setBuffer("")
		return true, nil

	case 0xff1b: // Escape
		if e.line == "" {
			return false, nil
		}
		e.setBuffer("")
		return true, nil
	}

	char := keyvalToRune(keyval)
	if char == 0 {
		return false, nil
	}

	// Keys outside an active composition pass through untouched, except
	// letters, which start one.
	if e.line == "" && (char < 'a' || char > 'z') && (char < 'A' || char > 'Z') {
		return false, nil
	}

	e.setBuffer(e.line + string(char))
	return true, nil
}

// FocusIn is called when the engine gains focus.
func (e *engine) FocusIn() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	return nil
}

// FocusOut commits nothing and drops the composition.
func (e *engine) FocusOut() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	e.setBuffer("")
	return nil
}

// Reset drops the composition state.
func (e *engine) Reset() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setBuffer("")
	return nil
}

// Enable is called when the engine is enabled.
func (e *engine) Enable() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
	return nil
}

// Disable drops the composition and stops consuming keys.
func (e *engine) Disable() *dbus.Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
	e.setBuffer("")
	return nil
}

// SetContentType informs about the type of content being edited.
func (e *engine) SetContentType(purpose, hints uint32) *dbus.Error {
	return nil
}

// SetSurroundingText provides context around the cursor.
func (e *engine) SetSurroundingText(text string, cursorPos, anchorPos uint32) *dbus.Error {
	return nil
}

// keyvalToRune converts an X11 keysym to a Unicode rune.
func keyvalToRune(keyval uint32) rune {
	if keyval >= 0x20 && keyval <= 0x7e {
		return rune(keyval)
	}
	if keyval >= 0xa0 && keyval <= 0xff {
		return rune(keyval)
	}
	if keyval >= 0x01000000 {
		return rune(keyval - 0x01000000)
	}
	return 0
}

func installComponent() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	componentDir := filepath.Join(home, ".local", "share", "ibus", "component")
	if err := os.MkdirAll(componentDir, 0755); err != nil {
		return err
	}

	binPath, err := os.Executable()
	if err != nil {
		binPath = "/usr/local/bin/cantotype-ibus"
	}

	componentXML := `<?xml version="1.0" encoding="utf-8"?>
<component>
    <name>com.cantotype.ibus</name>
    <description>Cantotype Cantonese transliteration</description>
    <exec>` + binPath + `</exec>
    <version>1.0.0</version>
    <author>Cantotype</author>
    <license>MIT</license>
    <homepage>https://github.com/cantotype/cantotype</homepage>
    <textdomain>cantotype</textdomain>
    <engines>
        <engine>
            <name>cantotype</name>
            <language>yue</language>
            <license>MIT</license>
            <author>Cantotype</author>
            <icon>cantotype</icon>
            <layout>us</layout>
            <longname>Cantotype</longname>
            <description>Cantonese transliteration input</description>
            <rank>99</rank>
            <symbol>粵</symbol>
        </engine>
    </engines>
</component>`

	componentPath := filepath.Join(componentDir, "cantotype.xml")
	return os.WriteFile(componentPath, []byte(componentXML), 0644)
}

func uninstallComponent() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	componentPath := filepath.Join(home, ".local", "share", "ibus", "component", "cantotype.xml")
	return os.Remove(componentPath)
}
