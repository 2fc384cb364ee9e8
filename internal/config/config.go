package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jwren/castellan/internal/gamenode"
)

// Config is the server's environment-driven configuration
type Config struct {
	// Port the HTTP server listens on
	Port int `env:"CASTELLAN_PORT" envDefault:"4404"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `env:"CASTELLAN_LOG_LEVEL" envDefault:"info"`

	// StorageType selects the storage backend ("memory" or "redis")
	StorageType string `env:"CASTELLAN_STORAGE" envDefault:"memory"`
	// RedisURL is the Redis connection string (required for redis storage)
	RedisURL string `env:"CASTELLAN_REDIS_URL"`

	// TokenSecret signs lobby auth tokens
	TokenSecret string `env:"CASTELLAN_TOKEN_SECRET,required"`
	// HandoffSecret signs game-server handoff tokens. Must be shared with
	// the game nodes so they can verify incoming players.
	HandoffSecret string `env:"CASTELLAN_HANDOFF_SECRET,required"`

	// TokenDuration is the lobby auth token lifetime
	TokenDuration time.Duration `env:"CASTELLAN_TOKEN_DURATION" envDefault:"24h"`
	// HandoffExpiry is the game handoff token lifetime
	HandoffExpiry time.Duration `env:"CASTELLAN_HANDOFF_EXPIRY" envDefault:"5m"`
	// StaleGameTimeout is how long a pending game may sit idle before the
	// sweeper removes it
	StaleGameTimeout time.Duration `env:"CASTELLAN_STALE_GAME_TIMEOUT" envDefault:"15m"`

	// MinClientVersion triggers an upgrade banner for older clients
	MinClientVersion string `env:"CASTELLAN_MIN_CLIENT_VERSION"`

	// NodesFile points at the JSON list of game-server nodes
	NodesFile string `env:"CASTELLAN_NODES_FILE" envDefault:"config/nodes.json"`
}

// Load reads configuration from a .env file (if present) and the
// environment
func Load() (Config, error) {
	// A missing .env file is fine; the environment alone may be complete
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// LoadNodes reads the game-server node list from the configured JSON
// file. An absent file yields an empty pool rather than an error so a
// lobby can run with nodes registered later.
func (c Config) LoadNodes() ([]gamenode.NodeConfig, error) {
	data, err := os.ReadFile(c.NodesFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading nodes file: %w", err)
	}

	var nodes []gamenode.NodeConfig
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parsing nodes file %s: %w", c.NodesFile, err)
	}

	for _, node := range nodes {
		if node.Identity == "" {
			return nil, fmt.Errorf("nodes file %s: node missing identity", c.NodesFile)
		}
	}
	return nodes, nil
}
