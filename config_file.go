package goPubtkt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a YAML configuration file over [DefaultConfig].
//
// Server.PublicKeyFile is read relative to the config file's directory and
// ${VAR} references in it are expanded. SharedCache.SecretEnv names the
// environment variable holding the shared cache secret. The result is
// validated before it is returned.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return parseConfig(data, filepath.Dir(path))
}

func parseConfig(data []byte, baseDir string) (Config, error) {
	cfg := defaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Server.PublicKeyFile != "" {
		keyPath := os.ExpandEnv(cfg.Server.PublicKeyFile)
		if !filepath.IsAbs(keyPath) {
			keyPath = filepath.Join(baseDir, keyPath)
		}
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return Config{}, fmt.Errorf("read public key: %w", err)
		}
		cfg.Server.PublicKey = key
	}

	if cfg.SharedCache.SecretEnv != "" {
		secret := os.Getenv(cfg.SharedCache.SecretEnv)
		if secret == "" && cfg.SharedCache.Enabled {
			return Config{}, fmt.Errorf("shared cache secret variable %s is not set", cfg.SharedCache.SecretEnv)
		}
		cfg.SharedCache.Secret = []byte(secret)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
