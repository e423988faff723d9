package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LevelFatal sits above slog.LevelError and is rendered as [FATAL].
const LevelFatal = slog.LevelError + 4

var (
	infoColor  = color.New(color.FgHiBlack)
	debugColor = color.New(color.FgBlue)
	warnColor  = color.New(color.FgHiYellow)
	errorColor = color.New(color.FgHiRed)
	fatalColor = color.New(color.FgHiRed, color.Bold)

	componentColors = map[string]*color.Color{
		"GATEWAY":   color.New(color.FgHiBlack),
		"VIEW":      color.New(color.FgHiCyan),
		"EXTENSION": color.New(color.FgHiGreen),
		"SAMPLER":   color.New(color.FgHiMagenta),
		"STATUS":    color.New(color.FgHiMagenta),
		"SYNC":      color.New(color.FgHiBlue),
	}

	ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")
)

// LoggerOptions controls NewLogger.
type LoggerOptions struct {
	Silent bool
	Debug  bool
	// LogFile writes a plain-text copy next to the executable.
	LogFile bool
}

// NewLogger builds the bot's structured logger. The returned closer releases
// the log file, if one was opened.
func NewLogger(opts LoggerOptions) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	if opts.Debug || strings.EqualFold(os.Getenv("DEBUG"), "true") {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stdout
	closer := func() error { return nil }

	if opts.LogFile {
		logName := "biochemie.log"
		if exe, err := os.Executable(); err == nil {
			logName = filepath.Base(exe) + ".log"
		}
		f, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			w = io.MultiWriter(os.Stdout, &ansiStripWriter{w: f})
			closer = f.Close
		}
	}

	// Colors stay on even when stdout is piped into the log file.
	color.NoColor = false

	return slog.New(NewBotLogHandler(w, &BotLogHandlerOptions{
		Silent: opts.Silent,
		Level:  level,
	})), closer
}

// Component returns a logger tagged with the given component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String("component", name))
}

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w         io.Writer
	opts      *BotLogHandlerOptions
	mu        *sync.Mutex
	component string
	attrs     []slog.Attr
	group     string
	now       func() time.Time
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
		now:  time.Now,
	}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	if h.opts.Silent {
		return nil
	}

	levelStr, levelColor := levelStyle(r.Level)

	component := h.component
	extra := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return true
		}
		extra = append(extra, h.qualify(a))
		return true
	})

	msg := r.Message
	if len(extra) > 0 {
		var sb strings.Builder
		sb.WriteString(msg)
		for _, a := range extra {
			fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value.Any())
		}
		msg = sb.String()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// 15:04:05 [LEVEL] message  or  15:04:05 [WARN] [COMPONENT] message
	fmt.Fprint(h.w, h.now().Format("15:04:05"))
	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(componentColor(component), fmt.Sprintf("[%s] %s", component, msg)))
		return nil
	}
	fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, fmt.Sprintf("[%s] %s", levelStr, msg)))
	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if a.Key == "component" {
			clone.component = strings.ToUpper(a.Value.String())
			continue
		}
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

func (h *BotLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *BotLogHandler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= LevelFatal:
		return "FATAL", fatalColor
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}

func componentColor(name string) *color.Color {
	if c, ok := componentColors[name]; ok {
		return c
	}
	return color.New(color.FgCyan)
}

// colorizeWithResets re-applies the outer color after every nested reset so
// that embedded colored fragments don't end the surrounding color early.
func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	return c.Sprint(strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq))
}

type ansiStripWriter struct {
	w io.Writer
}

func (s *ansiStripWriter) Write(p []byte) (int, error) {
	if _, err := s.w.Write(ansiPattern.ReplaceAll(p, nil)); err != nil {
		return 0, err
	}
	return len(p), nil
}

var exit = os.Exit

// LogFatal logs at the fatal level, runs closeLog once the entry is written
// and exits. closeLog may be nil.
func LogFatal(logger *slog.Logger, closeLog func() error, msg string, args ...any) {
	logger.Log(context.Background(), LevelFatal, msg, args...)
	if closeLog != nil {
		_ = closeLog()
	}
	exit(1)
}
