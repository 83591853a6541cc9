// Package config loads the simulation's single configuration record
// (spec.md §6): one struct built once at startup from an optional TOML
// file plus process environment variables, with no package-level globals.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full set of enumerated options from spec.md §6.
type Config struct {
	Seed uint32 `toml:"seed"`

	ArtifactsDir string `toml:"artifacts_dir"`
	StateDir     string `toml:"state_dir"`

	FaultProfile float64 `toml:"fault_profile"`

	DriftMode string `toml:"drift_mode"`
	DriftSeed uint32 `toml:"drift_seed"`

	Monitors []string `toml:"monitors"`

	ScenarioPack   string `toml:"scenario_pack"`
	ScenarioFile   string `toml:"scenario_file"`
	RandomScenario bool   `toml:"random_scenario"`

	AliasPacks []string `toml:"alias_packs"`

	ERPErrorRate float64 `toml:"erp_error_rate"`
	CRMErrorRate float64 `toml:"crm_error_rate"`

	PolicyPromotions []string `toml:"policy_promotions"`

	TraceStreamEndpoint string `toml:"trace_stream_endpoint"`
}

// Default returns the configuration's baseline values (spec.md §6's
// documented defaults).
func Default() Config {
	return Config{
		Seed:         42042,
		DriftMode:    "off",
		ERPErrorRate: 0,
		CRMErrorRate: 0,
	}
}

// LoadFile reads and merges a TOML configuration file over the defaults.
// A missing file is not an error — the caller continues with Default()
// (or whatever was already loaded) since all configuration is optional.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv overlays process environment variables (optionally sourced from
// a .env file via godotenv) onto cfg, following the VEI_* naming
// convention. Unset variables leave the existing field untouched.
func LoadEnv(cfg Config, envFile string) Config {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	if v, ok := os.LookupEnv("VEI_SEED"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Seed = uint32(n)
		}
	}
	if v, ok := os.LookupEnv("VEI_ARTIFACTS_DIR"); ok {
		cfg.ArtifactsDir = v
	}
	if v, ok := os.LookupEnv("VEI_STATE_DIR"); ok {
		cfg.StateDir = v
	}
	if v, ok := os.LookupEnv("VEI_FAULT_PROFILE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FaultProfile = f
		}
	}
	if v, ok := os.LookupEnv("VEI_DRIFT_MODE"); ok {
		cfg.DriftMode = v
	}
	if v, ok := os.LookupEnv("VEI_DRIFT_SEED"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.DriftSeed = uint32(n)
		}
	}
	if v, ok := os.LookupEnv("VEI_MONITORS"); ok {
		cfg.Monitors = splitCSV(v)
	}
	if v, ok := os.LookupEnv("VEI_SCENARIO_PACK"); ok {
		cfg.ScenarioPack = v
	}
	if v, ok := os.LookupEnv("VEI_SCENARIO_FILE"); ok {
		cfg.ScenarioFile = v
	}
	if v, ok := os.LookupEnv("VEI_RANDOM_SCENARIO"); ok {
		cfg.RandomScenario = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("VEI_ALIAS_PACKS"); ok {
		cfg.AliasPacks = splitCSV(v)
	}
	if v, ok := os.LookupEnv("VEI_ERP_ERROR_RATE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ERPErrorRate = f
		}
	}
	if v, ok := os.LookupEnv("VEI_CRM_ERROR_RATE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.CRMErrorRate = f
		}
	}
	if v, ok := os.LookupEnv("VEI_POLICY_PROMOTIONS"); ok {
		cfg.PolicyPromotions = splitCSV(v)
	}
	if v, ok := os.LookupEnv("VEI_TRACE_STREAM_ENDPOINT"); ok {
		cfg.TraceStreamEndpoint = v
	}
	return cfg
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
