package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/sugawarayuuta/sonnet"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"episode_len=5", "step_delay=1ms"})
	if err != nil {
		t.Fatal(err)
	}
	if got["episode_len"] != "5" || got["step_delay"] != "1ms" {
		t.Errorf("params %v", got)
	}
	if _, err := parseParams([]string{"novalue"}); err == nil {
		t.Error("malformed param accepted")
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bench.env")
	if err := os.WriteFile(file, []byte("ENVPOOL_NUM_ENVS=6\nENVPOOL_BATCH_SIZE=3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f := &runFlags{}
	fl := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addConfigFlags(fl, f)
	if err := fl.Parse([]string{"--config", file, "--batch-size", "2", "--param", "episode_len=9"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(fl, f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.NumEnvs != 6 {
		t.Errorf("num_envs %d, want 6 from the dotenv file", cfg.NumEnvs)
	}
	if cfg.BatchSize != 2 {
		t.Errorf("batch_size %d, want 2 from the flag", cfg.BatchSize)
	}
	if cfg.IntParam("episode_len", 0) != 9 {
		t.Errorf("episode_len param %v", cfg.Params["episode_len"])
	}
}

func TestResolveConfigSkipsUnknownVariables(t *testing.T) {
	t.Setenv("ENVPOOL_DEBUG", "1")
	t.Setenv("ENVPOOL_SEED", "5")
	f := &runFlags{}
	fl := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addConfigFlags(fl, f)
	if err := fl.Parse(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(fl, f)
	if err != nil {
		t.Fatalf("stray variable rejected: %v", err)
	}
	if cfg.Seed != 5 {
		t.Errorf("seed %d, want 5 from the environment", cfg.Seed)
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRunCmd()
	if args[0] == "spec" {
		root = newSpecCmd()
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args[1:])
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestRunCommand(t *testing.T) {
	for _, env := range []string{"dummy", "cartpole"} {
		t.Run(env, func(t *testing.T) {
			out := execute(t, "run", "--env", env, "--num-envs", "4", "--batch-size", "2", "--num-threads", "2", "--steps", "40")
			var rep report
			if err := sonnet.Unmarshal([]byte(out), &rep); err != nil {
				t.Fatalf("decode %q: %v", out, err)
			}
			if rep.Steps < 40 || rep.Env != env || rep.Sync {
				t.Errorf("report %+v", rep)
			}
			if rep.RunID == "" || rep.Config["pool_id"] != rep.RunID {
				t.Errorf("run id %q, pool id %v", rep.RunID, rep.Config["pool_id"])
			}
		})
	}
}

func TestSpecCommand(t *testing.T) {
	out := execute(t, "spec", "--env", "cartpole", "--num-envs", "3")
	var doc specDoc
	if err := sonnet.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Env != "cartpole" || len(doc.State) == 0 || doc.State[0].Name != "env_id" {
		t.Errorf("spec doc %+v", doc)
	}
	var obs *fieldDoc
	for i := range doc.State {
		if doc.State[i].Name == "obs" {
			obs = &doc.State[i]
		}
	}
	if obs == nil || len(obs.Shape) != 1 || obs.Shape[0] != 4 {
		t.Errorf("obs field %+v", obs)
	}
}

func TestUnknownEnv(t *testing.T) {
	if _, err := lookupEnv("atari"); err == nil || !strings.Contains(err.Error(), "cartpole") {
		t.Errorf("got %v", err)
	}
}

func TestRecordRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	rep := &report{RunID: "r1", Env: "dummy", Steps: 10, Seconds: 0.5, StepsPerSec: 20}
	if err := recordRun(path, rep, []byte(`{"run_id":"r1"}`)); err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED") {
			t.Skip("sqlite3 driver needs cgo")
		}
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var steps int
	if err := db.QueryRow(`SELECT steps FROM runs WHERE run_id = ?`, "r1").Scan(&steps); err != nil {
		t.Fatal(err)
	}
	if steps != 10 {
		t.Errorf("steps %d", steps)
	}
}
