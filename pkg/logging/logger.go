package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ServiceName is attached to every record.
const ServiceName = "dexql"

// global holds the process logger. GetLogger installs the default lazily.
var global struct {
	mu     sync.RWMutex
	logger *slog.Logger
	file   *os.File
	level  slog.LevelVar
}

// LogLevel is a verbosity name as it appears in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// map to LevelInfo.
func ParseLevel(name string) LogLevel {
	switch l := LogLevel(strings.ToUpper(strings.TrimSpace(name))); l {
	case LevelDebug, LevelWarn, LevelError:
		return l
	default:
		return LevelInfo
	}
}

var slogLevels = map[LogLevel]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

func (l LogLevel) slogLevel() slog.Level {
	if lv, ok := slogLevels[l]; ok {
		return lv
	}
	return slog.LevelInfo
}

// Config selects level, format and destination of the process logger.
type Config struct {
	Level LogLevel

	// OutputPath is "", "stderr", "stdout" or a file path.
	OutputPath string

	// Format is "json" or "text".
	Format string

	// AddSource annotates records with the calling file and line.
	AddSource bool

	// Writer overrides OutputPath when set.
	Writer io.Writer
}

// Init installs the process logger. It fails when any logger, the lazy
// default included, is already installed; Close first to reconfigure.
func Init(config Config) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.logger != nil {
		return errors.New("logger already initialized; call Close() first to reinitialize")
	}

	writer, err := openWriter(config)
	if err != nil {
		return errors.Wrap(err, "open log output")
	}
	global.logger = newLogger(writer, config.Format, config.Level.slogLevel(), config.AddSource)
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level, addSource bool) *slog.Logger {
	global.level.Set(level)
	opts := &slog.HandlerOptions{Level: &global.level, AddSource: addSource}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", ServiceName)
}

func openWriter(config Config) (io.Writer, error) {
	if config.Writer != nil {
		return config.Writer, nil
	}

	switch config.OutputPath {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	global.file = file
	return file, nil
}

// InitDefault installs an INFO text logger on stderr unless a logger is
// already installed.
func InitDefault() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.logger == nil {
		global.logger = newLogger(os.Stderr, "text", slog.LevelInfo, false)
	}
}

// SetLevel changes the verbosity of the installed logger in place.
func SetLevel(level LogLevel) {
	global.level.Set(level.slogLevel())
}

// Close drops the logger and closes its log file, if any. Init may be
// called again afterwards.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	var err error
	if global.file != nil {
		err = global.file.Close()
		global.file = nil
	}
	global.logger = nil
	return err
}

// GetLogger returns the process logger, installing the default on first use.
func GetLogger() *slog.Logger {
	global.mu.RLock()
	l := global.logger
	global.mu.RUnlock()
	if l != nil {
		return l
	}

	InitDefault()
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.logger
}

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }

func Info(msg string, args ...any) { GetLogger().Info(msg, args...) }

func Warn(msg string, args ...any) { GetLogger().Warn(msg, args...) }

func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }
