package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"securematch-server"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Contains(t, cfg.DatabaseDSN, "postgres://")
	assert.Len(t, cfg.MasterKey, 64)
	assert.Equal(t, []string{"customer_id", "name", "pan", "aadhaar", "compliance_flag"}, cfg.SearchableFields)
}

func TestLoadConfig_NoOverrides(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
}

func TestLoadConfig_Flags(t *testing.T) {
	withArgs(t, "-a", ":9090", "-d", "postgres://db/test", "-f", "pan, name")

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://db/test", cfg.DatabaseDSN)
	assert.Equal(t, []string{"pan", "name"}, cfg.SearchableFields)
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{
		"endpoint_addr_http": ":7070",
		"searchable_fields": ["pan"]
	}`), 0o600)
	assert.NoError(t, err)

	withArgs(t, "-c", path)

	cfg := LoadConfig()
	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, []string{"pan"}, cfg.SearchableFields)
	// fields absent from the file keep their defaults
	assert.Len(t, cfg.MasterKey, 64)
}

func TestLoadConfig_FlagsBeatJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"endpoint_addr_http": ":7070"}`), 0o600)
	assert.NoError(t, err)

	withArgs(t, "-c", path, "-a", ":9090")

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
}

func TestSplitFields(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"pan,name", []string{"pan", "name"}},
		{" pan , name ", []string{"pan", "name"}},
		{"pan,,name,", []string{"pan", "name"}},
		{"", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, splitFields(tc.raw), "raw=%q", tc.raw)
	}
}
