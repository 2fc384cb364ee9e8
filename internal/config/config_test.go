package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) setRequired() {
	s.T().Setenv("CASTELLAN_TOKEN_SECRET", "token-secret")
	s.T().Setenv("CASTELLAN_HANDOFF_SECRET", "handoff-secret")
}

func (s *ConfigSuite) TestDefaults() {
	s.setRequired()

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(4404, cfg.Port)
	s.Equal("info", cfg.LogLevel)
	s.Equal("memory", cfg.StorageType)
	s.Equal(24*time.Hour, cfg.TokenDuration)
	s.Equal(5*time.Minute, cfg.HandoffExpiry)
	s.Equal(15*time.Minute, cfg.StaleGameTimeout)
}

func (s *ConfigSuite) TestOverrides() {
	s.setRequired()
	s.T().Setenv("CASTELLAN_PORT", "8080")
	s.T().Setenv("CASTELLAN_STORAGE", "redis")
	s.T().Setenv("CASTELLAN_REDIS_URL", "redis://localhost:6379")
	s.T().Setenv("CASTELLAN_STALE_GAME_TIMEOUT", "30m")

	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(8080, cfg.Port)
	s.Equal("redis", cfg.StorageType)
	s.Equal("redis://localhost:6379", cfg.RedisURL)
	s.Equal(30*time.Minute, cfg.StaleGameTimeout)
}

func (s *ConfigSuite) TestMissingSecrets() {
	s.T().Setenv("CASTELLAN_TOKEN_SECRET", "token-secret")

	_, err := Load()
	s.Error(err)
}

func (s *ConfigSuite) TestLoadNodes() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "nodes.json")
	s.Require().NoError(os.WriteFile(path, []byte(`[
		{"identity": "node1", "address": "node1.example.com", "port": 9100, "protocol": "wss", "maxGames": 50},
		{"identity": "node2", "address": "node2.example.com", "port": 9100, "protocol": "wss", "controlUrl": "http://node2.internal:9101"}
	]`), 0o600))

	cfg := Config{NodesFile: path}
	nodes, err := cfg.LoadNodes()
	s.Require().NoError(err)
	s.Require().Len(nodes, 2)
	s.Equal("node1", nodes[0].Identity)
	s.Equal(50, nodes[0].MaxGames)
	s.Equal("http://node2.internal:9101", nodes[1].ControlURL)
}

func (s *ConfigSuite) TestLoadNodesMissingFile() {
	cfg := Config{NodesFile: "does/not/exist.json"}
	nodes, err := cfg.LoadNodes()
	s.Require().NoError(err)
	s.Nil(nodes)
}

func (s *ConfigSuite) TestLoadNodesMissingIdentity() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "nodes.json")
	s.Require().NoError(os.WriteFile(path, []byte(`[{"address": "x"}]`), 0o600))

	cfg := Config{NodesFile: path}
	_, err := cfg.LoadNodes()
	s.Error(err)
}
