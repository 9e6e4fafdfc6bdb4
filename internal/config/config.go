package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"draftpad/internal/debounce"
	"draftpad/pkg/draftdoc"
)

const (
	DefaultAppName       = "draftpad"
	DefaultDocument      = "content.draft"
	DefaultWindowWidth   = 420
	DefaultWindowHeight  = 520
	DefaultMaxImageWidth = 600
	DefaultPasswordEnv   = "DRAFTPAD_PASSWORD"
)

var (
	ErrInvalidConfig   = errors.New("config: invalid value")
	ErrMissingPassword = errors.New("config: encryption enabled but password is not set")
)

// Config is the user-editable settings file.
type Config struct {
	AppName  string         `yaml:"app_name"`
	DataDir  string         `yaml:"data_dir"`
	Document string         `yaml:"document"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Storage  StorageConfig  `yaml:"storage"`
	Window   WindowConfig   `yaml:"window"`
	Editor   EditorConfig   `yaml:"editor"`
	Watch    bool           `yaml:"watch"`
	LogLevel string         `yaml:"log_level"`
}

type AutosaveConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type StorageConfig struct {
	Compression bool   `yaml:"compression"`
	Encryption  bool   `yaml:"encryption"`
	PasswordEnv string `yaml:"password_env"`
}

type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type EditorConfig struct {
	FontSize      int `yaml:"font_size"`
	MaxImageWidth int `yaml:"max_image_width"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		dataDir = "."
	}
	return &Config{
		AppName:  DefaultAppName,
		DataDir:  dataDir,
		Document: DefaultDocument,
		Autosave: AutosaveConfig{Interval: debounce.DefaultInterval},
		Storage: StorageConfig{
			Compression: true,
			PasswordEnv: DefaultPasswordEnv,
		},
		Window: WindowConfig{Width: DefaultWindowWidth, Height: DefaultWindowHeight},
		Editor: EditorConfig{
			FontSize:      int(draftdoc.DefaultFontSizePt),
			MaxImageWidth: DefaultMaxImageWidth,
		},
		Watch:    true,
		LogLevel: "info",
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.AppName) == "" || strings.ContainsAny(c.AppName, `/\`) {
		return fmt.Errorf("%w: app_name %q", ErrInvalidConfig, c.AppName)
	}
	if strings.TrimSpace(c.Document) == "" || filepath.Base(c.Document) != c.Document {
		return fmt.Errorf("%w: document %q", ErrInvalidConfig, c.Document)
	}
	if c.Autosave.Interval <= 0 {
		return fmt.Errorf("%w: autosave.interval must be positive", ErrInvalidConfig)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Editor.FontSize < 8 || c.Editor.FontSize > 96 {
		return fmt.Errorf("%w: editor.font_size %d outside 8..96", ErrInvalidConfig, c.Editor.FontSize)
	}
	if c.Editor.MaxImageWidth <= 0 {
		return fmt.Errorf("%w: editor.max_image_width must be positive", ErrInvalidConfig)
	}
	if c.Storage.Encryption && strings.TrimSpace(c.Storage.PasswordEnv) == "" {
		return fmt.Errorf("%w: storage.password_env is required with encryption", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DocumentPath is <data_dir>/<app_name>/<document>.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.DataDir, c.AppName, c.Document)
}

// Password reads the document password from the configured environment
// variable.
func (c *Config) Password() (string, error) {
	if !c.Storage.Encryption {
		return "", nil
	}
	pw := os.Getenv(c.Storage.PasswordEnv)
	if pw == "" {
		return "", fmt.Errorf("%w (%s)", ErrMissingPassword, c.Storage.PasswordEnv)
	}
	return pw, nil
}

func (c *Config) SaveOptions() (draftdoc.SaveOptions, error) {
	pw, err := c.Password()
	if err != nil {
		return draftdoc.SaveOptions{}, err
	}
	return draftdoc.SaveOptions{
		Compression: c.Storage.Compression,
		Encryption:  draftdoc.EncryptionOptions{Enabled: c.Storage.Encryption, Password: pw},
	}, nil
}

// LoadOptions never fails: a missing password surfaces later as
// draftdoc.ErrPasswordRequired when an encrypted file is read.
func (c *Config) LoadOptions() draftdoc.LoadOptions {
	pw, _ := c.Password()
	return draftdoc.LoadOptions{Password: pw}
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
	return level, nil
}
