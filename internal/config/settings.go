// Package config loads process settings and resolves the Hookbase
// organization every tool call is scoped to.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvAPIKey      = "HOOKBASE_API_KEY"
	EnvAPIURL      = "HOOKBASE_API_URL"
	EnvOrgID       = "HOOKBASE_ORG_ID"
	EnvDebug       = "HOOKBASE_DEBUG"
	EnvStrict      = "HOOKBASE_STRICT"
	EnvJournalPath = "HOOKBASE_JOURNAL_PATH"
)

// File is the optional YAML config file. The API key is never read from it.
type File struct {
	APIURL         string        `yaml:"api_url"`
	OrganizationID string        `yaml:"organization_id"`
	Debug          bool          `yaml:"debug"`
	Strict         bool          `yaml:"strict"`
	JournalPath    string        `yaml:"journal_path"`
	HTTPCache      HTTPCacheFile `yaml:"http_cache"`
}

type HTTPCacheFile struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
	MaxEntries int  `yaml:"max_entries"`
}

// Settings is the merged view of file and environment.
type Settings struct {
	APIKey         string
	APIURL         string
	OrganizationID string
	Debug          bool
	Strict         bool
	JournalPath    string
	HTTPCache      HTTPCacheFile
}

// Load reads path (if non-empty) and overlays the environment read through getenv.
func Load(path string, getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var f File
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	s := Settings{
		APIKey:         strings.TrimSpace(getenv(EnvAPIKey)),
		APIURL:         strings.TrimSpace(f.APIURL),
		OrganizationID: strings.TrimSpace(f.OrganizationID),
		Debug:          f.Debug,
		Strict:         f.Strict,
		JournalPath:    strings.TrimSpace(f.JournalPath),
		HTTPCache:      f.HTTPCache,
	}
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		s.APIURL = v
	}
	if v := strings.TrimSpace(getenv(EnvOrgID)); v != "" {
		s.OrganizationID = v
	}
	if v, ok := envBool(getenv(EnvDebug)); ok {
		s.Debug = v
	}
	if v, ok := envBool(getenv(EnvStrict)); ok {
		s.Strict = v
	}
	if v := strings.TrimSpace(getenv(EnvJournalPath)); v != "" {
		s.JournalPath = v
	}
	return s, nil
}

func envBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	if strings.EqualFold(raw, "yes") || strings.EqualFold(raw, "on") {
		return true, true
	}
	if strings.EqualFold(raw, "no") || strings.EqualFold(raw, "off") {
		return false, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return b, true
}
