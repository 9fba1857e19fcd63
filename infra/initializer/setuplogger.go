package initializer

import (
	"io"
	"log/slog"

	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var levelStyles = []struct {
	level log.Level
	icon  string
	color string
	key   string
}{
	{log.ErrorLevel, "❌", "#FF6B6B", "error"},
	{log.InfoLevel, "ℹ️", "#04B575", "info"},
	{log.WarnLevel, "⚠️", "#EE6FF8", "warn"},
	{log.DebugLevel, "🐛", "#7E57C2", "debug"},
}

// setupLogger builds the charmbracelet-backed slog logger and installs it
// as the default.
func setupLogger(cfg *config.Log, w io.Writer) *slog.Logger {
	if cfg == nil {
		cfg = &config.Log{Format: "text"}
	}
	styles := log.DefaultStyles()
	for _, ls := range levelStyles {
		color := lipgloss.AdaptiveColor{Light: ls.color, Dark: ls.color}
		styles.Levels[ls.level] = lipgloss.NewStyle().
			SetString(ls.icon).
			Bold(true).
			Padding(0, 1).
			Foreground(color)
		styles.Keys[ls.key] = lipgloss.NewStyle().Foreground(color)
		styles.Values[ls.key] = lipgloss.NewStyle().Bold(true)
	}
	accent := lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}
	for _, key := range []string{"prefix", "caller", "time", "version", "request_id"} {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(accent)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	logger.SetStyles(styles)

	slogger := slog.New(logger)
	slog.SetDefault(slogger)
	return slogger
}
