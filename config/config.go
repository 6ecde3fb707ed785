// Package config loads and validates the engine's configuration: the
// supported block types, replay and admission tunables, archive shard
// sizing, and the cycles budget for shard creation and offload ops.
package config

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	validator "gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v2"
)

// SupportedBlock names one block type this deployment accepts, with a URL
// pointing at its schema documentation for icrc3_supported_block_types.
type SupportedBlock struct {
	BlockType string `yaml:"block_type" validate:"required"`
	URL       string `yaml:"url"`
}

// Config holds every tunable preserved across upgrades.
type Config struct {
	SupportedBlocks []SupportedBlock `yaml:"supported_blocks" validate:"required,min=1,dive"`

	TxWindow       time.Duration `yaml:"tx_window" validate:"required"`
	PermittedDrift time.Duration `yaml:"permitted_drift"`

	MaxBlocksPerResponse      int `yaml:"max_blocks_per_response" validate:"required,min=1"`
	MaxTransactionsInWindow   int `yaml:"max_transactions_in_window" validate:"required,min=1"`
	MaxUnarchivedTransactions int `yaml:"max_unarchived_transactions" validate:"min=0"`

	MaxMemorySizeBytes  uint64 `yaml:"max_memory_size_bytes" validate:"required,min=1"`
	MaxSegmentSizeBytes uint64 `yaml:"max_segment_size_bytes" validate:"required,min=1"`

	InitialCycles  uint64 `yaml:"initial_cycles"`
	ReservedCycles uint64 `yaml:"reserved_cycles"`
	MaxRetries     int    `yaml:"max_retries" validate:"min=0"`

	TTLForNonArchivedTransactions time.Duration `yaml:"ttl_for_non_archived_transactions"`

	OffloadTickInterval time.Duration `yaml:"offload_tick_interval" validate:"required"`
	OffloadRetryBackoff time.Duration `yaml:"offload_retry_backoff" validate:"required"`

	ListenAddr        string `yaml:"listen_addr" validate:"required"`
	AdminListenAddr   string `yaml:"admin_listen_addr"`
	MetricsListenAddr string `yaml:"metrics_listen_addr"`

	SnapshotPath string `yaml:"snapshot_path" validate:"required"`
	ArchiveDir   string `yaml:"archive_dir" validate:"required"`
}

// GConf is the process-wide config pointer. LoadConfig does not set it;
// cmd/txlogd assigns LoadConfig's result to it once at startup and does
// not mutate it after that.
var GConf *Config

// LoadConfig reads, unmarshals, and validates the YAML config at path.
func LoadConfig(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshaling config file %s", path)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

// SupportedBlockTypes builds the lookup set LogConfig wants from the
// config's SupportedBlocks list.
func (c *Config) SupportedBlockTypes() map[string]bool {
	out := make(map[string]bool, len(c.SupportedBlocks))
	for _, b := range c.SupportedBlocks {
		out[b.BlockType] = true
	}
	return out
}
