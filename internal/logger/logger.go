package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35
	colorCyan    = 36

	colorBold = 1
)

func colorize(s interface{}, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// New creates a logger and sets the process-wide level. ENV selects the
// output: console for development (the default), JSON otherwise. Unknown
// levels fall back to info.
func New(level string) zerolog.Logger {
	SetLevel(level)
	if IsDevelopment(os.Getenv("ENV")) {
		return NewDevelopment(os.Stderr)
	}
	return NewProduction(os.Stderr)
}

// SetLevel changes the minimum level of every logger at runtime, including
// loggers derived before the call.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func IsDevelopment(env string) bool {
	return env == "development" || env == "dev" || env == ""
}

// ParseLevel is zerolog.ParseLevel with an info fallback.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewDevelopment writes colourised console lines.
func NewDevelopment(out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:         out,
		TimeFormat:  "2006-01-02 15:04:05",
		FormatLevel: formatLevel,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

func formatLevel(i interface{}) string {
	ll, ok := i.(string)
	if !ok {
		return strings.ToUpper(fmt.Sprintf("%-3.3s", fmt.Sprint(i)))
	}
	switch ll {
	case "trace":
		return colorize("TRC", colorMagenta)
	case "debug":
		return colorize("DBG", colorYellow)
	case "info":
		return colorize("INF", colorGreen)
	case "warn":
		return colorize("WRN", colorCyan)
	case "error", "fatal", "panic":
		return colorize(strings.ToUpper(ll)[0:3], colorRed)
	default:
		return colorize(strings.ToUpper(fmt.Sprintf("%-3.3s", ll)), colorBold)
	}
}

// NewProduction writes JSON lines with UNIX timestamps.
func NewProduction(out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(out).With().Timestamp().Logger()
}
