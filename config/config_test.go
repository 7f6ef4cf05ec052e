package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  sos_events_topic_name: "sos.events.v1"
redis:
  host: "localhost"
  port: 6379
veinline:
  http_addr: ":8080"
  city_match_strict: false
  match_limit: 25
sms:
  provider: "fast2sms"
  api_key: "from-file"
  sender_id: "VEINLN"
email:
  backend: "log"
`)

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "sos.events.v1", cfg.SOSEventsTopic())
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.VeinLine.HTTPAddr)
	require.False(t, cfg.CityMatchStrict())
	require.Equal(t, 25, cfg.VeinLine.MatchLimit)
	require.Equal(t, "from-file", cfg.SMS.APIKey)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.PostgresConnString())
	require.Equal(t, "localhost:6379", cfg.RedisAddr())
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers())
}

func TestLoadConfig_Defaults(t *testing.T) {
	p := writeConfig(t, `
database:
  host: "db"
  port: 5432
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.True(t, cfg.CityMatchStrict())
	require.Equal(t, "sos.events", cfg.SOSEventsTopic())
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("VEINLINE_SMS_API_KEY", "from-env")
	t.Setenv("VEINLINE_SMS_PROVIDER", "textlocal")
	t.Setenv("VEINLINE_SMTP_PASSWORD", "smtp-secret")

	p := writeConfig(t, `
sms:
  provider: "fast2sms"
  api_key: "from-file"
email:
  password: "file-secret"
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.SMS.APIKey)
	require.Equal(t, "textlocal", cfg.SMS.Provider)
	require.Equal(t, "smtp-secret", cfg.Email.Password)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	t.Setenv("VEINLINE_SMS_PROVIDER", "")
	cfg, err := LoadConfig("config.example.yaml")
	require.NoError(t, err)
	require.Equal(t, "log", cfg.SMS.Provider)
	require.Equal(t, "sos.events", cfg.SOSEventsTopic())
	require.True(t, cfg.CityMatchStrict())
	require.Equal(t, ":8082", cfg.VeinLine.WorkerHTTPAddr)
}
