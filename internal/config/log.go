package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var logFormatters = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// Log configures hookrunner's own diagnostics. They go to stderr so they
// never interleave with the step board a hook prints on stdout.
type Log struct {
	// Level is one of debug, info, warn, error, fatal. "debug" shows every
	// spawned command and each step resolution. Overridden by --log-level.
	Level string `koanf:"level"`
	// Format is text, json or logfmt.
	Format string `koanf:"format"`
	// DisableTimestamps is handy when hook output is captured by CI. Also set
	// by --log-disable-timestamps.
	DisableTimestamps bool `koanf:"disable_timestamps"`

	ParsedLevel     log.Level     `koanf:"-"`
	ParsedFormatter log.Formatter `koanf:"-"`
}

// Validate parses Level and Format.
func (l *Log) Validate() (err error) {
	l.ParsedLevel, err = log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, fatal - got: %s", l.Level)
	}

	var ok bool
	l.ParsedFormatter, ok = logFormatters[l.Format]
	if !ok {
		return fmt.Errorf("log.format must be one of text, json, logfmt - got: %s", l.Format)
	}

	return nil
}

// SetLoggerDefaults points the global logger at stderr with millisecond
// timestamps, since step durations are usually sub-second. It runs before
// the config is loaded so that config errors are styled too.
func SetLoggerDefaults() {
	log.SetOutput(os.Stderr)
	log.SetTimeFunction(log.NowUTC)
	log.SetTimeFormat("15:04:05.000")

	styles := log.DefaultStyles()
	styles.Timestamp = lipgloss.NewStyle().Faint(true)
	styles.Prefix = lipgloss.NewStyle().Bold(true).Faint(true)
	styles.Message = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	styles.Value = lipgloss.NewStyle().Foreground(lipgloss.Color("105"))

	styles.Levels[log.DebugLevel] = styles.Levels[log.DebugLevel].Foreground(lipgloss.Color("86"))
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].Foreground(lipgloss.Color("82"))
	styles.Levels[log.WarnLevel] = styles.Levels[log.WarnLevel].Foreground(lipgloss.Color("226"))
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].Foreground(lipgloss.Color("196"))
	styles.Levels[log.FatalLevel] = styles.Levels[log.FatalLevel].Foreground(lipgloss.Color("208"))

	log.SetStyles(styles)
}

// ConfigureWithLevelString applies the config to the global logger. A
// non-empty logLevel from the command line wins over the file; an invalid
// one is reported and ignored.
func (l *Log) ConfigureWithLevelString(logLevel string, disableTimestampsOverride bool) {
	if logLevel != "" && logLevel != l.Level {
		parsedLevel, err := log.ParseLevel(logLevel)
		if err != nil {
			log.Error("ignoring --log-level", "level", logLevel, "using", l.Level, "error", err)
		} else {
			l.Level = logLevel
			l.ParsedLevel = parsedLevel
		}
	}

	log.SetLevel(l.ParsedLevel)
	log.SetFormatter(l.ParsedFormatter)

	disable := l.DisableTimestamps || disableTimestampsOverride
	log.SetReportTimestamp(!disable)

	SetLoggerDefaults()
}
