package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-g", "127.0.0.1:9091", "-u", "https://mk.example", "-d", "db", "-s", "secret",
			"-k", "sqlite", "-t", "5", "-p", "7", "-l", "debug",
		}, expected: &Config{
			HTTPAddr:       "127.0.0.1:9090",
			GRPCAddr:       "127.0.0.1:9091",
			PublicURL:      "https://mk.example",
			DatabaseDSN:    "db",
			SecretKey:      "secret",
			ConfigStore:    "sqlite",
			RefreshTimeout: 5 * time.Second,
			ProbeTimeout:   7 * time.Second,
			LogLevel:       "debug",
		}},
		{name: "foreign flags are ignored", args: []string{"cmd", "identity", "add", "-x", "1", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "bad number", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
