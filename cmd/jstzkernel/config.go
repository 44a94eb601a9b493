package main

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the kernel host's static configuration: the protocol
// constants the kernel loop needs (ticketer, rollup address), the
// outbox/inbox plumbing for a local run, and the seed key material used
// to derive the devnet ticketer/injector keys when none are given
// explicitly. Each field starts at its default, is overridden by the yaml
// file if set there, and then by its JSTZ_* environment variable if that
// is set; main applies any command-line flags given after that.
type Config struct {
	TicketerSeed   string `yaml:"ticketer_seed"`
	InjectorSeed   string `yaml:"injector_seed"`
	RollupAddress  string `yaml:"rollup_address"`
	InboxFile      string `yaml:"inbox_file"`
	OutboxCapacity int    `yaml:"outbox_capacity"`
	DebugReceipts  bool   `yaml:"debug_receipts"`
}

func defaultConfig() Config {
	return Config{
		TicketerSeed:   "jstz-devnet-ticketer",
		InjectorSeed:   "jstz-devnet-injector",
		OutboxCapacity: 100,
		DebugReceipts:  true,
	}
}

// loadConfig reads path as yaml (if non-empty) over defaultConfig, then
// lets JSTZ_* environment variables override individual fields — the
// same override order tzgen's flag/env wiring follows, with yaml in
// place of flags for the multi-field settings.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parsing config file")
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("JSTZ_TICKETER_SEED"); ok {
		cfg.TicketerSeed = v
	}
	if v, ok := os.LookupEnv("JSTZ_INJECTOR_SEED"); ok {
		cfg.InjectorSeed = v
	}
	if v, ok := os.LookupEnv("JSTZ_ROLLUP_ADDRESS"); ok {
		cfg.RollupAddress = v
	}
	if v, ok := os.LookupEnv("JSTZ_INBOX_FILE"); ok {
		cfg.InboxFile = v
	}
	if v, ok := os.LookupEnv("JSTZ_OUTBOX_CAPACITY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OutboxCapacity = n
		}
	}
	if v, ok := os.LookupEnv("JSTZ_DEBUG_RECEIPTS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DebugReceipts = b
		}
	}
}
