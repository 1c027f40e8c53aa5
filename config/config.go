// Package config loads the bot configuration from the environment, with
// an optional .env file in the user's home directory or the working
// directory.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	nostr "github.com/mintwatch/mintwatch"
)

type Config struct {
	// PrivateKey is the bot identity, raw hex or nsec. Never logged.
	PrivateKey string `env:"NOSTR_PRIVATE_KEY,required"`

	// Relays is a ;-separated list of relay endpoints, each either a bare
	// url or name=url.
	Relays []string `env:"NOSTR_RELAYS" envSeparator:";"`

	// AuditURL is the base url of the audit service.
	AuditURL string `env:"AUDIT_URL,required"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5m"`
	SnapshotPath string        `env:"SNAPSHOT_PATH" envDefault:"mintwatch.db"`
	Debug        bool          `env:"DEBUG"`
}

// Load reads the configuration, preferring a .env file in the home
// directory, then one in the working directory, then the plain process
// environment.
func Load() (*Config, error) {
	if home, err := os.UserHomeDir(); err == nil {
		if _, err := os.Stat(home + "/.env"); err == nil {
			godotenv.Load(home + "/.env")
		}
	}
	if _, err := os.Stat(".env"); err == nil {
		godotenv.Load()
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Endpoints parses the configured relay list into endpoints. An entry of
// the form name=url keeps the name; a bare url is named after itself.
func (c *Config) Endpoints() []nostr.Endpoint {
	endpoints := make([]nostr.Endpoint, 0, len(c.Relays))
	for _, entry := range c.Relays {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, url, found := strings.Cut(entry, "=")
		if !found {
			name, url = entry, entry
		}
		endpoints = append(endpoints, nostr.Endpoint{Name: name, URL: url})
	}
	return endpoints
}
