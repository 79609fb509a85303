// pkg/manifest/config.go
package manifest

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the top-level manifest. Validate fills defaults in place;
// nothing mutates the config after Load returns.
type Config struct {
	Endpoint Endpoint   `toml:"endpoint"`
	Auth     Auth       `toml:"auth"`
	Forward  Forward    `toml:"forward"`
	Response Response   `toml:"response"`
	Error    ErrorTopic `toml:"error"`
	Retry    Retry      `toml:"retry"`
	Behavior Behavior   `toml:"behavior"`
	Kafka    Kafka      `toml:"kafka"`
	Ops      Ops        `toml:"ops"`
}

// EnvManifestPath overrides the manifest location; default is ./manifest.toml.
const EnvManifestPath = "HTTPSINK_MANIFEST"

const defaultPath = "manifest.toml"

func PathFromEnv() string {
	if p := os.Getenv(EnvManifestPath); p != "" {
		return p
	}
	return defaultPath
}

// Load reads, parses, and validates the manifest. Any failure is fatal to
// startup; the task never runs with a partially valid config.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("manifest read: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("manifest parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes defaults and enforces required/forbidden combinations.
func (c *Config) Validate() error {
	if err := c.validateEndpoint(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateForward(); err != nil {
		return err
	}
	if err := c.validateTopics(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateBehavior(); err != nil {
		return err
	}
	if err := c.validateKafka(); err != nil {
		return err
	}
	return c.validateOps()
}
