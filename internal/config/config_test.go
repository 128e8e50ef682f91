package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, SchemaModeStatic, cfg.SchemaMode)
	assert.Equal(t, "Animal", cfg.Interface)
	assert.Equal(t, "animals", cfg.ListField)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.Catalog)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("GQLDYN_HTTP_ADDR", ":9999")
	t.Setenv("GQLDYN_SCHEMA_MODE", SchemaModePerRequest)

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, SchemaModePerRequest, cfg.SchemaMode)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GQLDYN_CATALOG", "from-env.cue")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyCatalog, "", "")
	fs.String("unrelated", "", "")
	require.NoError(t, fs.Parse([]string{"--catalog", "from-flag.yaml"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag.yaml", cfg.Catalog)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gqldyn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: zoo.cue\nrecords: sqlite://zoo.db\nlog-format: json\n"), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "zoo.cue", cfg.Catalog)
	assert.Equal(t, "sqlite://zoo.db", cfg.Records)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestConfigFileMissing(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	require.NoError(t, err)

	bad := base
	bad.SchemaMode = "sometimes"
	assert.Error(t, bad.Validate())

	bad = base
	bad.LogFormat = "xml"
	assert.Error(t, bad.Validate())

	bad = base
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Ingest = true
	assert.ErrorContains(t, bad.Validate(), KeyNATSURL)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
