// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store holding the effective pool options, plus
// loading of ENVPOOL_* options from the environment and dotenv files.

package control

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of pool options read from the environment.
const EnvPrefix = "ENVPOOL_"

// ConfigStore is a key/value map with atomic snapshot support.
type ConfigStore struct {
	mu     sync.RWMutex
	config map[string]any
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// SetConfig merges new values into the store.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
}

// LoadEnv collects pool options from dotenv files and the process
// environment. ENVPOOL_NUM_ENVS becomes "num_envs" and
// ENVPOOL_PARAMS_EPISODE_LEN becomes "params.episode_len". Process
// variables win over file values. Missing files are an error.
func LoadEnv(files ...string) (map[string]any, error) {
	out := make(map[string]any)
	if len(files) > 0 {
		vars, err := godotenv.Read(files...)
		if err != nil {
			return nil, fmt.Errorf("control: read dotenv: %w", err)
		}
		for k, v := range vars {
			if key, ok := optionKey(k); ok {
				out[key] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if key, ok := optionKey(k); ok {
			out[key] = v
		}
	}
	return out, nil
}

func optionKey(name string) (string, bool) {
	if !strings.HasPrefix(name, EnvPrefix) || len(name) == len(EnvPrefix) {
		return "", false
	}
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "params_"); ok {
		return "params." + rest, true
	}
	return key, true
}
