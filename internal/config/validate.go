package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validation modes name the command family being started.
const (
	ModePipeline = "pipeline"
	ModeServe    = "serve"
	ModeReadOnly = "readonly"
	// ModeOffline runs the pipeline against a scripted model client, so no
	// API key is needed.
	ModeOffline = "offline"
)

// Validate checks that the keys required by mode are present. Every missing
// key is reported in one error.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url (RECLAMAAI_STORE_DATABASE_URL)")
		}
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}

	switch mode {
	case ModePipeline, ModeServe:
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key (RECLAMAAI_ANTHROPIC_KEY)")
		}
		if c.Anthropic.Model == "" {
			missing = append(missing, "anthropic.model (RECLAMAAI_ANTHROPIC_MODEL)")
		}
	case ModeOffline:
	case ModeReadOnly:
		if c.Store.Driver == "none" {
			return eris.New("config: read-only commands need a store, driver is none")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if mode == ModeServe && c.Server.Port <= 0 {
		missing = append(missing, "server.port (RECLAMAAI_SERVER_PORT)")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
