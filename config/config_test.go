package config

import (
	"io/ioutil"
	"os"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, body string) string {
	f, err := ioutil.TempFile("", "txlogd-config-*.yaml")
	if err != nil {
		t.Fatalf("TempFile: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const validConfigYAML = `
supported_blocks:
  - block_type: "1mint"
    url: "https://example.invalid/1mint"
  - block_type: "1xfer"
    url: "https://example.invalid/1xfer"
tx_window: 24h
permitted_drift: 2m
max_blocks_per_response: 100
max_transactions_in_window: 100000
max_unarchived_transactions: 2000
max_memory_size_bytes: 1073741824
max_segment_size_bytes: 2097152
initial_cycles: 1000000000000
reserved_cycles: 500000000000
max_retries: 5
ttl_for_non_archived_transactions: 168h
offload_tick_interval: 1s
offload_retry_backoff: 10s
listen_addr: "0.0.0.0:9090"
admin_listen_addr: "127.0.0.1:9091"
snapshot_path: "/var/lib/txlogd/snapshot"
archive_dir: "/var/lib/txlogd/archive"
`

func TestLoadConfigRoundTrip(t *testing.T) {
	path := writeTestConfig(t, validConfigYAML)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TxWindow != 24*time.Hour {
		t.Fatalf("TxWindow = %v, want 24h", cfg.TxWindow)
	}
	if cfg.MaxBlocksPerResponse != 100 {
		t.Fatalf("MaxBlocksPerResponse = %d, want 100", cfg.MaxBlocksPerResponse)
	}
	types := cfg.SupportedBlockTypes()
	if !types["1mint"] || !types["1xfer"] {
		t.Fatalf("SupportedBlockTypes = %v, missing expected entries", types)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/txlogd-config.yaml"); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadConfigRejectsMissingRequiredFields(t *testing.T) {
	path := writeTestConfig(t, "listen_addr: \"0.0.0.0:9090\"\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation to reject a config missing required fields")
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeTestConfig(t, "not: valid: yaml: [")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}
