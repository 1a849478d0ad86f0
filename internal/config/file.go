package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/mailkeeper/internal/flagx"
	"github.com/dmitrijs2005/mailkeeper/internal/timex"
)

// FileConfig is the on-disk form of Config. Empty values leave the current
// setting untouched, so a file only needs the keys it changes.
type FileConfig struct {
	HTTPAddr       string           `json:"http_addr" toml:"http_addr"`
	GRPCAddr       string           `json:"grpc_addr" toml:"grpc_addr"`
	HealthInterval timex.Duration   `json:"health_interval" toml:"health_interval"`
	PublicURL      string           `json:"public_url" toml:"public_url"`
	DatabaseDSN    string           `json:"database_dsn" toml:"database_dsn"`
	SecretKey      string           `json:"secret_key" toml:"secret_key"`
	ConfigStore    string           `json:"config_store" toml:"config_store"`
	SQLitePath     string           `json:"sqlite_path" toml:"sqlite_path"`
	KeyringDir     string           `json:"keyring_dir" toml:"keyring_dir"`
	S3RootUser     string           `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword string           `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket       string           `json:"s3_bucket" toml:"s3_bucket"`
	S3Region       string           `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint string           `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	RefreshTimeout timex.Duration   `json:"refresh_timeout" toml:"refresh_timeout"`
	ProbeTimeout   timex.Duration   `json:"probe_timeout" toml:"probe_timeout"`
	StateTTL       timex.Duration   `json:"state_ttl" toml:"state_ttl"`
	LinkTTL        timex.Duration   `json:"link_ttl" toml:"link_ttl"`
	LogLevel       string           `json:"log_level" toml:"log_level"`
	LogFormat      string           `json:"log_format" toml:"log_format"`
	Providers      []ProviderConfig `json:"providers" toml:"providers"`
}

// parseFile overlays values from the file named by -c/-config (or
// $MAILKEEPER_CONFIG). Files ending in .toml are read as TOML, anything else
// as JSON. An unreadable or malformed file panics: the process cannot start
// with a half-applied configuration.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, fc)
	} else {
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.PublicURL, fc.PublicURL)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.ConfigStore, fc.ConfigStore)
	setString(&c.SQLitePath, fc.SQLitePath)
	setString(&c.KeyringDir, fc.KeyringDir)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.RefreshTimeout.Duration > 0 {
		c.RefreshTimeout = fc.RefreshTimeout.Duration
	}
	if fc.ProbeTimeout.Duration > 0 {
		c.ProbeTimeout = fc.ProbeTimeout.Duration
	}
	if fc.HealthInterval.Duration > 0 {
		c.HealthInterval = fc.HealthInterval.Duration
	}
	if fc.StateTTL.Duration > 0 {
		c.StateTTL = fc.StateTTL.Duration
	}
	if fc.LinkTTL.Duration > 0 {
		c.LinkTTL = fc.LinkTTL.Duration
	}
	if len(fc.Providers) > 0 {
		c.Providers = fc.Providers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
