package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// First line of runtime.Stack output, "goroutine 123 [running]:".
	stackBufSize = 32
	// "goroutine " prefix.
	goroutinePrefixLen = 10

	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	Logger zerolog.Logger

	stackBufs = sync.Pool{New: func() interface{} { return make([]byte, stackBufSize) }}
)

func init() {
	Logger = build(consoleWriter(os.Stderr), zerolog.InfoLevel)
	log.Logger = Logger
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
}

func build(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// goroutineID parses the current goroutine number out of a truncated stack trace.
func goroutineID() string {
	buf, ok := stackBufs.Get().([]byte)
	if !ok {
		return "unknown"
	}
	defer stackBufs.Put(buf) //nolint:staticcheck // slice header is fine here

	n := runtime.Stack(buf, false)
	if n <= goroutinePrefixLen {
		return "unknown"
	}

	end := goroutinePrefixLen
	for end < n && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == goroutinePrefixLen {
		return "unknown"
	}
	return string(buf[goroutinePrefixLen:end])
}

// Configure replaces the global logger with one at the given level and format.
// An empty level means info, an empty format means console.
func Configure(level, format string) error {
	return configure(os.Stderr, level, format)
}

func configure(out io.Writer, level, format string) error {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || parsed == zerolog.NoLevel {
			return fmt.Errorf("unknown log level %q", level)
		}
		lvl = parsed
	}

	var w io.Writer
	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = consoleWriter(out)
	case FormatJSON:
		w = out
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	Logger = build(w, lvl)
	log.Logger = Logger
	return nil
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs and exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}
