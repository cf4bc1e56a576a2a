package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/classify"
	"github.com/starford/raido/internal/convert"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Source    SourceConfig      `yaml:"source"`
	Vault     VaultConfig       `yaml:"vault"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	Auth      AuthConfig        `yaml:"auth"`
	Migration MigrationConfig   `yaml:"migration"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Migration.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
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

// SourceConfig holds the path to the wiki export being migrated.
type SourceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// CatalogConfig holds the migration catalog database configuration.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
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

// MigrationConfig holds migration behavior configuration.
//
// LinkStyle selects the output link syntax:
//   - "markdown" (default): standard [text](slug.md) links.
//   - "wiki": [[slug]] links for vaults that resolve bracket syntax.
//
// Rules are evaluated before the built-in folder rules, so a custom tag
// mapping always wins. ArchiveAfterDays of zero disables age-based
// archiving.
type MigrationConfig struct {
	LinkStyle        string          `yaml:"link_style"`
	CopyAttachments  bool            `yaml:"copy_attachments"`
	ArchiveAfterDays int             `yaml:"archive_after_days"`
	Rules            []classify.Rule `yaml:"rules"`
}

// Validate validates the migration configuration.
func (c *MigrationConfig) Validate() error {
	if c.LinkStyle == "" {
		c.LinkStyle = string(convert.LinkMarkdown)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LinkStyle, validation.Required,
			validation.In(string(convert.LinkMarkdown), string(convert.LinkWiki))),
		validation.Field(&c.ArchiveAfterDays, validation.Min(0)),
	); err != nil {
		return err
	}
	for i, r := range c.Rules {
		if r.Tag == "" || r.Folder == "" {
			return fmt.Errorf("migration: rule %d: tag and folder are both required", i)
		}
	}
	return nil
}

// ArchiveAfter returns the age cutoff for the Archives folder, or zero when
// age-based archiving is disabled.
func (c *MigrationConfig) ArchiveAfter() time.Duration {
	return time.Duration(c.ArchiveAfterDays) * 24 * time.Hour
}

// FolderRules returns the configured rules followed by the defaults.
func (c *MigrationConfig) FolderRules() []classify.Rule {
	return append(append([]classify.Rule{}, c.Rules...), classify.DefaultRules()...)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Path: "./wiki",
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Catalog: CatalogConfig{
			Path: "./raido.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Migration: MigrationConfig{
			LinkStyle:        string(convert.LinkMarkdown),
			CopyAttachments:  true,
			ArchiveAfterDays: 365,
		},
	}
}
