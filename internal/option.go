package internal

import (
	"io"
	"log/slog"

	"github.com/starford/notetags/internal/prompt"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	logger   *slog.Logger
	notifier prompt.Notifier
	logOut   io.Writer
	noSync   bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithLogOutput sets where the default JSON logger writes.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithNotifier sets how the tagger talks to the user. Without it every
// confirmation is declined.
func WithNotifier(n prompt.Notifier) Option {
	return func(a *application) {
		a.notifier = n
	}
}

// WithoutSync skips the initial index sync.
func WithoutSync() Option {
	return func(a *application) {
		a.noSync = true
	}
}
