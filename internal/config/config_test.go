package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://hf-mirror.com", cfg.MirrorURL)
	assert.Equal(t, 10, cfg.TopRepos)
	assert.Equal(t, 600*time.Second, cfg.RepoFetchTimeout())
	assert.Equal(t, time.Second, cfg.DetailDelay())
	assert.Equal(t, TransportNone, cfg.MailTransport)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
top_repos: 5
summary_language: English
mail_transport: smtp
recipients:
  - someone@example.com
smtp:
  host: smtp.example.com
  port: 465
  sender_email: pulse@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TopRepos)
	assert.Equal(t, "English", cfg.SummaryLanguage)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	// Untouched values keep their defaults.
	assert.Equal(t, "https://github.com/trending", cfg.TrendingURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesMaterialsDir(t *testing.T) {
	t.Setenv("PAPERPULSE_MATERIALS", "/tmp/elsewhere")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere", cfg.MaterialsDir)
}

func TestValidate_TransportRequiresRecipients(t *testing.T) {
	cfg := Defaults()
	cfg.MailTransport = TransportAPI
	assert.Error(t, cfg.Validate())

	cfg.Recipients = []string{"a@example.com"}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownTransport(t *testing.T) {
	cfg := Defaults()
	cfg.MailTransport = "pigeon"
	assert.Error(t, cfg.Validate())
}

func TestValidateTime(t *testing.T) {
	assert.NoError(t, ValidateTime("00:00"))
	assert.NoError(t, ValidateTime("23:59"))
	assert.Error(t, ValidateTime("24:00"))
	assert.Error(t, ValidateTime("12:60"))
	assert.Error(t, ValidateTime("9:00"))
	assert.Error(t, ValidateTime("ab:cd"))
}
