// cantotype is a terminal input pad for Cantonese transliteration.
//
// Type romanized syllables; candidate characters appear below the input
// line. Digits 1-6 pick a candidate, 0 pages forward, 9 pages back.
// Esc or Ctrl+C exits; with copy mode enabled the composed text is
// printed to stdout on exit.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"cantotype/internal/config"
	"cantotype/internal/fetch"
	"cantotype/internal/history"
	"cantotype/internal/ime"
	"cantotype/internal/locator"
	"cantotype/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default ~/.cantotype/config.toml)")
	exportFlag := flag.Bool("export", false, "Export selection history as JSON to stdout and exit")
	copyFlag := flag.Bool("copy", false, "Print composed text to stdout on exit")
	simplifiedFlag := flag.Bool("simplified", false, "Convert composed text to simplified script")
	flag.Parse()

	cfg, _, err := config.LoadOrCreate(*configPath)
	if err != nil {
		exitErr("load config: %v", err)
	}
	if *copyFlag {
		cfg.Output.CopyMode = true
	}
	if *simplifiedFlag {
		cfg.Output.Simplified = true
	}

	if *exportFlag {
		if err := exportHistory(cfg); err != nil {
			exitErr("export history: %v", err)
		}
		return
	}

	committed, err := run(cfg, *configPath)
	if err != nil {
		exitErr("%v", err)
	}
	if cfg.Output.CopyMode && committed != "" {
		fmt.Println(committed)
	}
}

func exitErr(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func exportHistory(cfg *config.Config) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Export(os.Stdout)
}

// run drives the TUI until exit and returns the final composed text.
func run(cfg *config.Config, configPath string) (string, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return "", err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return "", err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return "", err
	}
	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "cantotype",
	})
	if err != nil {
		return "", fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return "", fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return "", fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	builder := locator.NewBuilder(locator.Options{
		Endpoint:     cfg.Provider.Endpoint,
		InputTool:    cfg.Provider.InputTool,
		CandidateCap: cfg.Provider.CandidateCap,
		CallbackName: cfg.Provider.CallbackName,
		CacheSize:    cfg.Input.CacheSize,
	})
	client := fetch.NewClient(time.Duration(cfg.Provider.TimeoutMs) * time.Millisecond)

	controller := ime.NewController(ime.Options{
		Builder:       builder,
		Fetcher:       client,
		PageSize:      cfg.Input.PageSize,
		DebounceShort: time.Duration(cfg.Input.DebounceShortMs) * time.Millisecond,
		DebounceLong:  time.Duration(cfg.Input.DebounceLongMs) * time.Millisecond,
		Simplified:    cfg.Output.Simplified,
		Logger:        logger.Logger,
		OnUpdate: func(ime.Snapshot) {
			// Wake the event loop; it re-snapshots before drawing.
			screen.PostEvent(tcell.NewEventInterrupt(nil))
		},
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
	defer controller.Close()

	// Hot reload: simplified-script toggle applies without restart.
	loader := config.NewLoader(resolvedConfigPath(configPath))
	loader.OnChange(func(next *config.Config) {
		controller.SetSimplified(next.Output.Simplified)
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("config watch unavailable", "error", err)
	}
	defer loader.Close()

	logger.Info("cantotype started",
		"endpoint", cfg.Provider.Endpoint,
		"input_tool", cfg.Provider.InputTool)

	return eventLoop(screen, controller), nil
}

func resolvedConfigPath(path string) string {
	if path == "" {
		return config.ConfigPath()
	}
	return path
}

// eventLoop runs until the user quits and returns the final composed text.
func eventLoop(screen tcell.Screen, controller *ime.Controller) string {
	// line mirrors the controller's buffer between keystrokes; control
	// digits mutate the buffer, so it is re-read after every change.
	line := ""

	draw(screen, controller.Snapshot())

	for {
		ev := screen.PollEvent()
		switch e := ev.(type) {
		case *tcell.EventResize:
			screen.Sync()
			draw(screen, controller.Snapshot())

		case *tcell.EventInterrupt:
			draw(screen, controller.Snapshot())

		case *tcell.EventKey:
			switch e.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return controller.Snapshot().Committed

			case tcell.KeyBackspace, tcell.KeyBackspace2:
				line = trimLastRune(line)
				controller.OnBufferChange(line)
				line = controller.Snapshot().Buffer

			case tcell.KeyRune:
				line += string(e.Rune())
				controller.OnBufferChange(line)
				line = controller.Snapshot().Buffer
			}
			draw(screen, controller.Snapshot())
		}
	}
}

func trimLastRune(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	return string(runes[:len(runes)-1])
}

var (
	titleStyle     = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	bufferStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	candidateStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorBlack)
	errorStyle     = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorBlack)
	hintStyle      = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorBlack)
)

func draw(screen tcell.Screen, snap ime.Snapshot) {
	screen.Clear()
	w, h := screen.Size()

	drawBar(screen, 0, w, " cantotype ", titleStyle)

	status := ""
	if snap.Loading {
		status = " …"
	}
	drawText(screen, 0, 2, "> "+snap.Committed+status, bufferStyle)

	row := 4
	for _, c := range snap.Candidates {
		if row >= h-2 {
			break
		}
		drawText(screen, 2, row, fmt.Sprintf("%d. %s", c.Position, c.Text), candidateStyle)
		row++
	}

	if snap.ErrMsg != "" && h > 2 {
		drawText(screen, 0, h-2, "! "+snap.ErrMsg, errorStyle)
	}

	if h > 1 {
		hint := " 1-6 select  0 next  9 prev  Esc quit "
		if snap.TotalPages > 1 {
			hint = fmt.Sprintf(" page %d/%d |%s", snap.PageIndex+1, snap.TotalPages, hint)
		}
		drawBar(screen, h-1, w, hint, hintStyle)
	}

	screen.Show()
}

func drawBar(screen tcell.Screen, y, w int, text string, style tcell.Style) {
	for x := 0; x < w; x++ {
		screen.SetContent(x, y, ' ', nil, style)
	}
	drawText(screen, 0, y, text, style)
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	w, _ := screen.Size()
	for _, r := range text {
		if x >= w {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
