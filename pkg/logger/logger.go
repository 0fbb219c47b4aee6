package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a LogLevel, falling back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a printf-style front end over zerolog.
type Logger struct {
	mu        sync.Mutex
	zl        zerolog.Logger
	out       io.Writer
	level     LogLevel
	colorize  bool
	component string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Colorize   bool
	TimeFormat string
	Output     io.Writer
	// JSON disables the console writer and emits raw zerolog JSON lines.
	JSON bool
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   true,
		TimeFormat: "15:04:05",
		Output:     os.Stderr,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05"
	}

	l := &Logger{level: cfg.Level, colorize: cfg.Colorize}
	l.out = cfg.Output
	if !cfg.JSON {
		l.out = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: cfg.TimeFormat,
			NoColor:    !cfg.Colorize,
		}
	}
	l.rebuild()
	return l
}

// rebuild must be called with mu held or before the logger is shared.
func (l *Logger) rebuild() {
	ctx := zerolog.New(l.out).Level(l.level.zerolog()).With().Timestamp()
	if l.component != "" {
		ctx = ctx.Str("component", l.component)
	}
	l.zl = ctx.Logger()
}

// GetLogger returns the process-wide logger. CHROMA_LOG_LEVEL sets its level.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("CHROMA_LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// WithComponent returns a child logger tagging every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{out: l.out, level: l.level, colorize: l.colorize, component: component}
	child.rebuild()
	return child
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// SetOutput replaces the sink; output written through it is console formatted
// unless w is already a zerolog.ConsoleWriter.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := w.(zerolog.ConsoleWriter); ok {
		l.out = w
	} else {
		l.out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !l.colorize}
	}
	l.rebuild()
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = colorize
	if cw, ok := l.out.(zerolog.ConsoleWriter); ok {
		cw.NoColor = !colorize
		l.out = cw
	}
	l.rebuild()
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl
}

func (l *Logger) event(level LogLevel) *zerolog.Event {
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()

	switch level {
	case DEBUG:
		return zl.Debug()
	case WARN:
		return zl.Warn()
	case ERROR:
		return zl.Error()
	case FATAL:
		return zl.Fatal()
	default:
		return zl.Info()
	}
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	e := l.event(level)
	if len(args) == 0 {
		e.Msg(format)
		return
	}
	e.Msgf(format, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.logf(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logf(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logf(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logf(ERROR, msg, args...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, args ...any) { l.logf(FATAL, msg, args...) }

func (l *Logger) Debugf(format string, args ...any) { l.logf(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(ERROR, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.logf(FATAL, format, args...) }

// Package-level convenience functions using the default logger

func Debug(msg string, args ...any) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { GetLogger().Error(msg, args...) }
func Fatal(msg string, args ...any) { GetLogger().Fatal(msg, args...) }

func Debugf(format string, args ...any) { GetLogger().Debugf(format, args...) }
func Infof(format string, args ...any)  { GetLogger().Infof(format, args...) }
func Warnf(format string, args ...any)  { GetLogger().Warnf(format, args...) }
func Errorf(format string, args ...any) { GetLogger().Errorf(format, args...) }
func Fatalf(format string, args ...any) { GetLogger().Fatalf(format, args...) }

func SetLevel(level LogLevel)        { GetLogger().SetLevel(level) }
func SetOutput(w io.Writer)          { GetLogger().SetOutput(w) }
func SetColorize(colorize bool)      { GetLogger().SetColorize(colorize) }
func WithComponent(c string) *Logger { return GetLogger().WithComponent(c) }
