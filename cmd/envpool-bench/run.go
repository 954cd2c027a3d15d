// File: cmd/envpool-bench/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/envpool/control"
	"github.com/momentics/envpool/envspec"
	"github.com/momentics/envpool/pool"
)

type runFlags struct {
	env             string
	configFiles     []string
	numEnvs         int
	batchSize       int
	numThreads      int
	affinityOffset  int
	maxEpisodeSteps int
	seed            int64
	params          []string
	steps           int
	record          string
	verbose         bool
}

// report is the JSON result of one run.
type report struct {
	RunID       string         `json:"run_id"`
	Env         string         `json:"env"`
	Started     time.Time      `json:"started"`
	Sync        bool           `json:"sync"`
	Config      map[string]any `json:"config"`
	Steps       int            `json:"steps"`
	Seconds     float64        `json:"seconds"`
	StepsPerSec float64        `json:"steps_per_sec"`
	MeanReward  float64        `json:"mean_reward"`
	Stats       map[string]any `json:"stats"`
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Step a pool with random actions and report throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, f)
		},
	}
	addConfigFlags(cmd.Flags(), f)
	cmd.Flags().IntVar(&f.steps, "steps", 10000, "env steps to run")
	cmd.Flags().StringVar(&f.record, "record", "", "sqlite database to append the result to")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "debug logging")
	return cmd
}

func addConfigFlags(fl *pflag.FlagSet, f *runFlags) {
	fl.StringVar(&f.env, "env", "dummy", "environment: dummy or cartpole")
	fl.StringSliceVar(&f.configFiles, "config", nil, "dotenv files with ENVPOOL_* options")
	fl.IntVar(&f.numEnvs, "num-envs", 8, "number of environments")
	fl.IntVar(&f.batchSize, "batch-size", 0, "results per Recv, 0 for num-envs (lock-step)")
	fl.IntVar(&f.numThreads, "num-threads", 0, "worker count, 0 for min(batch, cpus)")
	fl.IntVar(&f.affinityOffset, "affinity-offset", -1, "index of the first usable cpu for worker pinning, negative disables")
	fl.IntVar(&f.maxEpisodeSteps, "max-episode-steps", 0, "truncate episodes after this many steps")
	fl.Int64Var(&f.seed, "seed", 42, "base seed")
	fl.StringArrayVar(&f.params, "param", nil, "env parameter key=value, repeatable")
}

// resolveConfig layers explicit flags over ENVPOOL_* options over flag
// defaults. ENVPOOL_* variables that name no option are skipped.
func resolveConfig(fl *pflag.FlagSet, f *runFlags) (envspec.Config, error) {
	opts, err := control.LoadEnv(f.configFiles...)
	if err != nil {
		return envspec.Config{}, err
	}
	for k := range opts {
		if !envspec.IsOption(k) {
			log.Printf("[bench] ignoring unknown option %s%s", control.EnvPrefix, strings.ToUpper(k))
			delete(opts, k)
		}
	}
	cfg, err := envspec.FromMap(opts)
	if err != nil {
		return envspec.Config{}, err
	}
	pick := func(flag, key string, v int, dst *int) {
		if _, set := opts[key]; fl.Changed(flag) || !set {
			*dst = v
		}
	}
	pick("num-envs", "num_envs", f.numEnvs, &cfg.NumEnvs)
	pick("batch-size", "batch_size", f.batchSize, &cfg.BatchSize)
	pick("num-threads", "num_threads", f.numThreads, &cfg.NumThreads)
	pick("affinity-offset", "thread_affinity_offset", f.affinityOffset, &cfg.ThreadAffinityOffset)
	pick("max-episode-steps", "max_episode_steps", f.maxEpisodeSteps, &cfg.MaxEpisodeSteps)
	if _, set := opts["seed"]; fl.Changed("seed") || !set {
		cfg.Seed = f.seed
	}

	params, err := parseParams(f.params)
	if err != nil {
		return envspec.Config{}, err
	}
	for k, v := range params {
		cfg.Params[k] = v
	}
	return cfg, nil
}

func parseParams(list []string) (map[string]any, error) {
	out := make(map[string]any, len(list))
	for _, kv := range list {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("param %q is not key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

func runBench(cmd *cobra.Command, f *runFlags) error {
	if f.steps <= 0 {
		return fmt.Errorf("--steps must be positive")
	}
	kind, err := lookupEnv(f.env)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd.Flags(), f)
	if err != nil {
		return err
	}
	spec, err := kind.spec(cfg)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	runID := uuid.NewString()

	p, err := pool.New(spec, kind.factory, pool.WithLogger(logger), pool.WithID(runID))
	if err != nil {
		return err
	}
	defer p.Close()
	log.Printf("[bench] run %s: %s, %d envs, batch %d, %d threads, sync=%v",
		runID, f.env, spec.Config.NumEnvs, spec.Config.BatchSize, spec.Config.NumThreads, p.IsSync())

	all := make([]int, spec.Config.NumEnvs)
	for i := range all {
		all[i] = i
	}
	if err := p.Reset(all); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(spec.Config.Seed))
	_, hasReward := spec.StateIndex("reward")
	var (
		steps  int
		reward float64
	)
	started := time.Now()
	for steps < f.steps {
		b, err := p.Recv()
		if err != nil {
			return err
		}
		ids := b.EnvIDs()
		steps += len(ids)
		if hasReward {
			r := b.MustField("reward")
			for i := 0; i < r.Len(); i++ {
				reward += r.Float64At(i)
			}
		}
		if err := p.SendAction(randomAction(rng, ids, kind.numActions)); err != nil {
			return err
		}
	}
	elapsed := time.Since(started)

	rep := &report{
		RunID:       runID,
		Env:         f.env,
		Started:     started,
		Sync:        p.IsSync(),
		Config:      p.Control().GetConfig(),
		Steps:       steps,
		Seconds:     elapsed.Seconds(),
		StepsPerSec: float64(steps) / elapsed.Seconds(),
		MeanReward:  reward / float64(steps),
		Stats:       p.Control().Stats(),
	}
	out, err := sonnet.Marshal(rep)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if f.record != "" {
		if err := recordRun(f.record, rep, out); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		log.Printf("[bench] recorded run %s in %s", runID, f.record)
	}
	return nil
}
