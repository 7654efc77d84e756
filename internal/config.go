package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notetags/internal/classifier"
	"github.com/starford/notetags/internal/prompt"
	"github.com/starford/notetags/internal/tagger"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Tags   TagsConfig        `yaml:"tags"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Tags.Validate(); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Picker   string     `yaml:"picker"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Picker == "" {
		c.Picker = prompt.KindPlain
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Picker, validation.In(prompt.KindPlain, prompt.KindFuzzy)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode is "disabled" (default) or "token". Token mode requires a
// non-empty Bearer token.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TagsConfig controls tag recognition and placement.
type TagsConfig struct {
	Pattern       string `yaml:"pattern"`
	CoarseLike    string `yaml:"coarse_like"`
	CoarseNotLike string `yaml:"coarse_not_like"`
	Marker        string `yaml:"marker"`
	// Directory is relative to the vault root; empty means the root.
	Directory string `yaml:"directory"`
}

var errBadDirectory = errors.New("must be a relative path inside the vault")

// Validate validates the tags configuration.
func (c *TagsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Pattern, validation.Required, validation.By(compiles)),
		validation.Field(&c.Marker, validation.Required),
		validation.Field(&c.Directory, validation.By(insideVault)),
	)
}

func compiles(v any) error {
	s, _ := v.(string)
	if _, err := regexp.Compile(s); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

func insideVault(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if filepath.IsAbs(s) || strings.HasPrefix(s, "/") {
		return errBadDirectory
	}
	clean := filepath.ToSlash(filepath.Clean(s))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errBadDirectory
	}
	return nil
}

// Classifier builds the tag classifier described by the config.
func (c *TagsConfig) Classifier() (*classifier.Classifier, error) {
	return classifier.New(c.Pattern, classifier.CoarseFilter{
		Like:    c.CoarseLike,
		NotLike: c.CoarseNotLike,
	})
}

// TaggerConfig returns the tagger settings.
func (c *TagsConfig) TaggerConfig() tagger.Config {
	dir := ""
	if c.Directory != "" {
		dir = filepath.ToSlash(filepath.Clean(c.Directory))
		if dir == "." {
			dir = ""
		}
	}
	return tagger.Config{Marker: c.Marker, Directory: dir}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	coarse := classifier.DefaultCoarse()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Picker:   prompt.KindPlain,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./notetags.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tags: TagsConfig{
			Pattern:       classifier.DefaultPattern,
			CoarseLike:    coarse.Like,
			CoarseNotLike: coarse.NotLike,
			Marker:        tagger.DefaultMarker,
		},
	}
}
