package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFromEnvironment(t *testing.T) {
	s, err := Load("", envMap(map[string]string{
		EnvAPIKey: " whr_abc ",
		EnvAPIURL: "http://localhost:8787",
		EnvOrgID:  "org_1",
		EnvDebug:  "true",
		EnvStrict: "1",
	}))
	require.NoError(t, err)
	assert.Equal(t, "whr_abc", s.APIKey)
	assert.Equal(t, "http://localhost:8787", s.APIURL)
	assert.Equal(t, "org_1", s.OrganizationID)
	assert.True(t, s.Debug)
	assert.True(t, s.Strict)
}

func TestLoadFileThenEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hookbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://staging.hookbase.app
organization_id: org_file
debug: true
journal_path: /tmp/journal.db
http_cache:
  enabled: true
  ttl_seconds: 10
`), 0o600))

	s, err := Load(path, envMap(map[string]string{
		EnvOrgID: "org_env",
		EnvDebug: "off",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://staging.hookbase.app", s.APIURL)
	assert.Equal(t, "org_env", s.OrganizationID)
	assert.False(t, s.Debug)
	assert.Equal(t, "/tmp/journal.db", s.JournalPath)
	assert.True(t, s.HTTPCache.Enabled)
	assert.Equal(t, 10, s.HTTPCache.TTLSeconds)
	assert.Empty(t, s.APIKey)
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unterminated"), 0o600))
	_, err := Load(path, envMap(nil))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	assert.Error(t, err)
}

func TestEnvBool(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "TRUE": true, "yes": true, "0": false, "off": false} {
		v, ok := envBool(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, v, raw)
	}
	_, ok := envBool("maybe")
	assert.False(t, ok)
}
