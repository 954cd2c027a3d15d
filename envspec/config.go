// File: envspec/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool configuration. Defaults follow the sync-by-default policy: batch_size
// equal to num_envs and one player per env.

package envspec

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/envpool/api"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = fmt.Errorf("envspec: invalid config: %w", api.ErrInvalidArgument)

// Config holds the construction-time options of a pool.
type Config struct {
	NumEnvs              int            // number of environment instances
	BatchSize            int            // results per Recv; <=0 means NumEnvs
	NumThreads           int            // worker count; 0 means min(batch, NumCPU)
	MaxNumPlayers        int            // players per env; 1 for single-agent envs
	ThreadAffinityOffset int            // first CPU for worker pinning; <0 disables
	MaxEpisodeSteps      int            // trunc is raised once elapsed_step reaches it; 0 disables
	Seed                 int64          // base seed, env i receives Seed+i
	Params               map[string]any // env-specific options
}

// DefaultConfig returns a fully synchronous single-env configuration.
func DefaultConfig() Config {
	return Config{
		NumEnvs:              1,
		BatchSize:            0,
		NumThreads:           0,
		MaxNumPlayers:        1,
		ThreadAffinityOffset: -1,
		MaxEpisodeSteps:      0,
		Seed:                 42,
		Params:               map[string]any{},
	}
}

// Normalize resolves the automatic values of BatchSize and NumThreads.
func (c Config) Normalize() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = c.NumEnvs
	}
	if c.NumThreads <= 0 {
		c.NumThreads = min(c.BatchSize, runtime.NumCPU())
	}
	if c.MaxNumPlayers <= 0 {
		c.MaxNumPlayers = 1
	}
	if c.Params == nil {
		c.Params = map[string]any{}
	}
	return c
}

// Validate checks a normalized config.
func (c Config) Validate() error {
	switch {
	case c.NumEnvs <= 0:
		return fmt.Errorf("%w: num_envs must be positive, got %d", ErrInvalidConfig, c.NumEnvs)
	case c.BatchSize <= 0 || c.BatchSize > c.NumEnvs:
		return fmt.Errorf("%w: batch_size %d must be in [1, num_envs=%d]", ErrInvalidConfig, c.BatchSize, c.NumEnvs)
	case c.NumThreads <= 0:
		return fmt.Errorf("%w: num_threads must be positive, got %d", ErrInvalidConfig, c.NumThreads)
	case c.MaxNumPlayers <= 0:
		return fmt.Errorf("%w: max_num_players must be positive, got %d", ErrInvalidConfig, c.MaxNumPlayers)
	case c.MaxEpisodeSteps < 0:
		return fmt.Errorf("%w: max_episode_steps must not be negative", ErrInvalidConfig)
	}
	return nil
}

// IsSync reports whether the config selects lock-step batching.
func (c Config) IsSync() bool {
	return c.BatchSize == c.NumEnvs && c.MaxNumPlayers == 1
}

// ToMap flattens the config using the option names callers configure with.
func (c Config) ToMap() map[string]any {
	m := map[string]any{
		"num_envs":               c.NumEnvs,
		"batch_size":             c.BatchSize,
		"num_threads":            c.NumThreads,
		"max_num_players":        c.MaxNumPlayers,
		"thread_affinity_offset": c.ThreadAffinityOffset,
		"max_episode_steps":      c.MaxEpisodeSteps,
		"seed":                   c.Seed,
	}
	for k, v := range c.Params {
		m["params."+k] = v
	}
	return m
}

var optionNames = []string{
	"num_envs", "batch_size", "num_threads", "max_num_players",
	"thread_affinity_offset", "max_episode_steps", "seed",
}

// IsOption reports whether FromMap accepts key.
func IsOption(key string) bool {
	if rest, ok := strings.CutPrefix(key, "params."); ok {
		return rest != ""
	}
	return slices.Contains(optionNames, key)
}

// FromMap builds a Config from option names, starting from DefaultConfig.
// Keys prefixed with "params." land in Params; unknown keys are an error.
func FromMap(m map[string]any) (Config, error) {
	c := DefaultConfig()
	for k, v := range m {
		var err error
		switch k {
		case "num_envs":
			c.NumEnvs, err = toInt(v)
		case "batch_size":
			c.BatchSize, err = toInt(v)
		case "num_threads":
			c.NumThreads, err = toInt(v)
		case "max_num_players":
			c.MaxNumPlayers, err = toInt(v)
		case "thread_affinity_offset":
			c.ThreadAffinityOffset, err = toInt(v)
		case "max_episode_steps":
			c.MaxEpisodeSteps, err = toInt(v)
		case "seed":
			var s int
			s, err = toInt(v)
			c.Seed = int64(s)
		default:
			if rest, ok := strings.CutPrefix(k, "params."); ok && rest != "" {
				c.Params[rest] = v
				continue
			}
			return c, fmt.Errorf("%w: unknown option %q", ErrInvalidConfig, k)
		}
		if err != nil {
			return c, fmt.Errorf("%w: option %q: %v", ErrInvalidConfig, k, err)
		}
	}
	return c, nil
}

// IntParam reads an integer env parameter, falling back to def.
func (c Config) IntParam(key string, def int) int {
	v, ok := c.Params[key]
	if !ok {
		return def
	}
	n, err := toInt(v)
	if err != nil {
		return def
	}
	return n
}

// FloatParam reads a float env parameter, falling back to def.
func (c Config) FloatParam(key string, def float64) float64 {
	switch v := c.Params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// DurationParam reads a duration env parameter ("5ms" or nanoseconds), falling back to def.
func (c Config) DurationParam(key string, def time.Duration) time.Duration {
	switch v := c.Params[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v)
	case int64:
		return time.Duration(v)
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// StringParam reads a string env parameter, falling back to def.
func (c Config) StringParam(key string, def string) string {
	if v, ok := c.Params[key].(string); ok {
		return v
	}
	return def
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("cannot use %T as integer", v)
}
