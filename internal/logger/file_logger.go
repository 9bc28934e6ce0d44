package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a logger
type Options struct {
	Service string // added to every event as "service"
	Level   string // DEBUG, INFO, WARN or ERROR; empty reads LOG_LEVEL
	Console bool   // human-readable output instead of JSON on the writer
	Writer  io.Writer
	Dir     string // when set, events are also appended to <Dir>/<service>_<date>.log
}

// Logger is a zerolog logger plus the session log file it may own
type Logger struct {
	zerolog.Logger

	mu      sync.Mutex
	logFile *os.File
	path    string
}

// ParseLevel maps the LOG_LEVEL vocabulary onto zerolog levels. Unknown
// values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger. When Dir is set a session file is opened in append
// mode and a session start event is written to it.
func New(opts Options) (*Logger, error) {
	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	var out io.Writer = opts.Writer
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := &Logger{}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		service := opts.Service
		if service == "" {
			service = "session"
		}
		l.path = filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02")))
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.logFile = file
		out = zerolog.MultiLevelWriter(out, file)
	}

	ctx := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	l.Logger = ctx.Logger()

	if l.logFile != nil {
		l.Info().Str("log_file", l.path).Msg("session started")
	}
	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Path returns the session log file, or "" when there is none
func (l *Logger) Path() string {
	return l.path
}

// Close writes the session end event and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	l.Info().Msg("session ended")
	err := l.logFile.Close()
	l.logFile = nil
	return err
}
