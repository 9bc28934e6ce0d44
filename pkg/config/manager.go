package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	simerrors "github.com/ducminhle1904/regime-backtester/internal/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SIM_"

// LoadStrategyConfig reads a YAML or JSON file on top of the defaults,
// applies environment overrides and validates the result
func LoadStrategyConfig(path string) (*StrategyConfig, error) {
	cfg := DefaultStrategyConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, simerrors.NewConfigurationError("config", "load", "could not read config file").
				WithContext("path", path)
		}
		if err := Decode(data, filepath.Ext(path), cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals data into cfg by file extension. Unknown fields are
// rejected so typos in strategy files do not silently fall back to defaults.
func Decode(data []byte, ext string, cfg *StrategyConfig) error {
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		return simerrors.NewConfigurationError("config", "decode", "unsupported config format").
			WithContext("ext", ext)
	}
	if err != nil {
		return simerrors.WrapError(fmt.Errorf("could not parse config: %w", err),
			simerrors.ErrorCategoryConfiguration, "config", "decode")
	}
	return nil
}

// LoadEnv loads a dotenv file. A missing default .env is not an error.
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return nil
		}
	}
	return godotenv.Load(envFile)
}

// ApplyEnv overrides top-level run settings from SIM_* variables
func ApplyEnv(cfg *StrategyConfig, lookup func(string) (string, bool)) error {
	floatVars := map[string]func(float64){
		"INITIAL_CAPITAL": func(v float64) {
			if cfg.Bullish != nil {
				cfg.Bullish.InitialCapital = v
			}
			if cfg.Bearish != nil {
				cfg.Bearish.InitialCapital = v
			}
		},
		"COMMISSION":           func(v float64) { cfg.Execution.Commission = v },
		"ANNUALIZATION_FACTOR": func(v float64) { cfg.AnnualizationFactor = v },
	}
	intVars := map[string]func(int){
		"WARMUP_PERIODS":  func(v int) { cfg.WarmupPeriods = v },
		"TIMEOUT_SECONDS": func(v int) { cfg.TimeoutSeconds = v },
	}
	boolVars := map[string]func(bool){
		"KELLY_ENABLED":     func(v bool) { cfg.Kelly.Enabled = v },
		"STOP_LOSS_ENABLED": func(v bool) { cfg.StopLoss.Enabled = v },
	}

	for name, set := range floatVars {
		if raw, ok := lookup(EnvPrefix + name); ok {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return envError(name, raw)
			}
			set(v)
		}
	}
	for name, set := range intVars {
		if raw, ok := lookup(EnvPrefix + name); ok {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return envError(name, raw)
			}
			set(v)
		}
	}
	for name, set := range boolVars {
		if raw, ok := lookup(EnvPrefix + name); ok {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return envError(name, raw)
			}
			set(v)
		}
	}
	return nil
}

func envError(name, raw string) error {
	return simerrors.NewConfigurationError("config", "env", "invalid environment override").
		WithContext("var", EnvPrefix+name).
		WithContext("value", raw)
}

// Save writes cfg as indented JSON or YAML depending on the extension
func Save(cfg *StrategyConfig, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
