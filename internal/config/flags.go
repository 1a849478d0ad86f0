package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/mailkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address (empty disables it)
//	-u string   public base URL used for OAuth2 redirects
//	-d string   PostgreSQL DSN
//	-s string   global secret key
//	-k string   config store backend (postgres, sqlite, keyring, s3, memory)
//	-t int      token refresh timeout, seconds
//	-p int      activation probe timeout, seconds
//	-l string   log level
//
// Only these flags are considered; os.Args is filtered with flagx.FilterArgs
// so commands with their own flags do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-u", "-d", "-s", "-k", "-t", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port of the gRPC health service")
	fs.StringVar(&config.PublicURL, "u", config.PublicURL, "public base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.ConfigStore, "k", config.ConfigStore, "config store backend")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	refreshTimeout := fs.Int("t", int(config.RefreshTimeout.Seconds()), "token refresh timeout (in seconds)")
	probeTimeout := fs.Int("p", int(config.ProbeTimeout.Seconds()), "mailbox probe timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RefreshTimeout = time.Duration(*refreshTimeout) * time.Second
	config.ProbeTimeout = time.Duration(*probeTimeout) * time.Second
}
