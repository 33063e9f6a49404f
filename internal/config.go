package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notepress/internal/site"
)

// Provider kinds.
const (
	ProviderOsascript = "osascript"
	ProviderFile      = "file"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Provider    ProviderConfig    `yaml:"provider"`
	Sync        SyncConfig        `yaml:"sync"`
	Site        SiteConfig        `yaml:"site"`
	Preview     PreviewConfig     `yaml:"preview"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.SQLite, &c.Attachments, &c.Provider, &c.Sync, &c.Site, &c.Preview,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
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

// AttachmentsConfig controls where extracted images are written.
type AttachmentsConfig struct {
	Path string `yaml:"path"`
	// Dedupe reuses one file for byte-identical images within a note.
	Dedupe bool `yaml:"dedupe"`
}

// Validate validates the attachments configuration.
func (c *AttachmentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ProviderConfig selects where notes come from.
//
// Kind is one of:
//   - "osascript" (default): the macOS Notes app via JavaScript for Automation.
//   - "file": a JSON export at ExportFile.
type ProviderConfig struct {
	Kind       string `yaml:"kind"`
	ExportFile string `yaml:"export_file"`
	ScratchDir string `yaml:"scratch_dir"`
}

// Validate validates the provider configuration.
func (c *ProviderConfig) Validate() error {
	if c.Kind == "" {
		c.Kind = ProviderOsascript
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(ProviderOsascript, ProviderFile)),
	); err != nil {
		return err
	}
	if c.Kind == ProviderFile && c.ExportFile == "" {
		return fmt.Errorf("provider: kind is %q but export_file is empty", ProviderFile)
	}
	return nil
}

// SyncConfig holds sync defaults.
type SyncConfig struct {
	DefaultCollection string `yaml:"default_collection"`
	Workers           int    `yaml:"workers"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultCollection, validation.Required),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(64)),
	)
}

// SiteConfig holds static site generation settings.
type SiteConfig struct {
	OutputDir string `yaml:"output_dir"`
	Theme     string `yaml:"theme"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	themes := make([]any, 0, len(site.ThemeNames()))
	for _, n := range site.ThemeNames() {
		themes = append(themes, n)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Theme, validation.Required, validation.In(themes...)),
	)
}

// PreviewConfig holds preview server configuration.
type PreviewConfig struct {
	Port int `yaml:"port"`
}

// Address returns the loopback address the preview server binds.
func (c *PreviewConfig) Address() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		SQLite: SQLiteConfig{
			Path: "notes.db",
		},
		Attachments: AttachmentsConfig{
			Path: "attachments",
		},
		Provider: ProviderConfig{
			Kind: ProviderOsascript,
		},
		Sync: SyncConfig{
			DefaultCollection: "Blog",
			Workers:           4,
		},
		Site: SiteConfig{
			OutputDir: "html",
			Theme:     "blog",
		},
		Preview: PreviewConfig{
			Port: 8080,
		},
	}
}
