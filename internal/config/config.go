// Package config loads the settings of the claude CLI: a YAML file in the
// XDG config directory, overlaid by CLAUDE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	claude "github.com/AshwinPathi/claude-api-go"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "CLAUDE_"

// Help describes every setting; it is shared by the settings template and
// the command line flags.
var Help = map[string]string{
	"session-key":   "Value of the sessionKey cookie of a logged in claude.ai browser session.",
	"base-url":      "Base URL of the web chat API.",
	"user-agent":    "User agent to send; use the one of the browser the session key came from.",
	"organization":  "Organization uuid to use; the first organization of the session when empty.",
	"model":         "Model to answer with (claude-2.0, claude-2.1, claude-3-opus-20240229...).",
	"timezone":      "Timezone the answer is rendered for.",
	"timeout":       "Give up on a request after this long (e.g. 30s, 2m, 1h).",
	"org-cache-ttl": "How long the organization list of a session key is cached.",
	"raw":           "Render output as raw text when connected to a TTY.",
	"quiet":         "Quiet mode (hide the status line while waiting).",
	"word-wrap":     "Wrap formatted output at specific width.",
	"no-cache":      "Disables the local conversation index and transcript cache.",
	"cache-path":    "Where the conversation index and transcripts are kept.",
	"verbose":       "Log every request to stderr.",
	"stream":        "Print the answer as it arrives instead of waiting for all of it.",
	"json":          "Print the raw JSON records of the answer.",
	"copy":          "Copy the answer to the clipboard.",
	"continue":      "Continue the conversation with the given title or uuid prefix.",
	"continue-last": "Continue the most recently used conversation.",
	"title":         "Title of a new conversation, used when no title can be generated.",
	"attach":        "File to attach to the message; may be repeated.",
	"cached":        "Show the cached transcript without asking the server.",
	"all":           "Apply to every conversation of the organization.",
	"settings":      "Open settings in your $EDITOR, or print their path when not on a terminal.",
	"yes":           "Do not ask for confirmation.",
	"help":          "Show help and exit.",
	"version":       "Show version and exit.",
}

// Config holds the settings and is mapped to the YAML settings file.
type Config struct {
	SessionKey   string        `yaml:"session-key" env:"SESSION_KEY"`
	BaseURL      string        `yaml:"base-url" env:"BASE_URL"`
	UserAgent    string        `yaml:"user-agent" env:"USER_AGENT"`
	Organization string        `yaml:"organization" env:"ORGANIZATION"`
	Model        string        `yaml:"model" env:"MODEL"`
	Timezone     string        `yaml:"timezone" env:"TIMEZONE"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	OrgCacheTTL  time.Duration `yaml:"org-cache-ttl" env:"ORG_CACHE_TTL"`
	Raw          bool          `yaml:"raw" env:"RAW"`
	Quiet        bool          `yaml:"quiet" env:"QUIET"`
	WordWrap     int           `yaml:"word-wrap" env:"WORD_WRAP"`
	NoCache      bool          `yaml:"no-cache" env:"NO_CACHE"`
	CachePath    string        `yaml:"cache-path" env:"CACHE_PATH"`
	Verbose      bool          `yaml:"verbose" env:"VERBOSE"`

	SettingsPath string `yaml:"-"`
}

// Default returns the settings of a fresh install.
func Default() Config {
	return Config{
		BaseURL:     claude.BaseURL,
		UserAgent:   claude.DefaultUserAgent,
		Model:       string(claude.DefaultModel),
		Timezone:    string(claude.DefaultTimezone),
		Timeout:     5 * time.Minute,
		OrgCacheTTL: 24 * time.Hour,
		WordWrap:    80,
	}
}

// Error is a failure loading the settings, with a reason fit for users.
type Error struct {
	Err    error
	Reason string
}

func (e Error) Error() string { return e.Err.Error() }

func (e Error) Unwrap() error { return e.Err }

// ErrNoSessionKey happens when neither the settings nor the environment
// provide a session key.
var ErrNoSessionKey = errors.New("no session key configured")

// Path returns where the settings file lives.
func Path() (string, error) {
	sp, err := xdg.ConfigFile(filepath.Join("claude", "claude.yml"))
	if err != nil {
		return "", Error{err, "Could not find settings path."}
	}
	return sp, nil
}

// Ensure loads the settings at the default path, writing the template there
// first when the file does not exist.
func Ensure() (Config, error) {
	sp, err := Path()
	if err != nil {
		return Default(), err
	}
	return Load(sp)
}

// Load reads the settings file at path, creating it from the template when
// missing, and applies the environment on top.
func Load(path string) (Config, error) {
	c := Default()
	c.SettingsPath = path

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return c, Error{err, "Could not create settings directory."}
	}
	if err := writeConfigFile(path); err != nil {
		return c, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return c, Error{err, "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, Error{err, "Could not parse settings file."}
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return c, Error{err, "Could not parse environment into settings file."}
	}
	if c.CachePath == "" {
		c.CachePath = filepath.Join(xdg.DataHome, "claude")
	}
	return c, nil
}

// Client returns the client configuration the settings describe.
func (c Config) Client() (claude.Config, error) {
	if c.SessionKey == "" {
		return claude.Config{}, Error{ErrNoSessionKey, fmt.Sprintf(
			"Set session-key in %s or the %sSESSION_KEY environment variable.",
			c.SettingsPath, EnvPrefix,
		)}
	}
	cfg := claude.DefaultConfig(c.SessionKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.UserAgent != "" {
		cfg.UserAgent = c.UserAgent
	}
	if c.Model != "" {
		cfg.Model = claude.Model(c.Model)
	}
	if c.Timezone != "" {
		cfg.Timezone = claude.Timezone(c.Timezone)
	}
	return cfg, nil
}

func writeConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return Error{err, "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Error{err, "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct {
		Config Config
		Help   map[string]string
	}{
		Config: Default(),
		Help:   Help,
	}
	if err := tmpl.Execute(f, m); err != nil {
		return Error{err, "Could not render template."}
	}
	return nil
}
