// File: cmd/envpool-bench/envs.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/env"
	"github.com/momentics/envpool/env/cartpole"
	"github.com/momentics/envpool/env/dummy"
	"github.com/momentics/envpool/envspec"
)

// envKind is a bundled environment the bench can drive.
type envKind struct {
	spec    func(envspec.Config) (*envspec.Spec, error)
	factory env.Factory
	// numActions bounds the random discrete action fed to every env.
	numActions int32
}

var envKinds = map[string]envKind{
	"dummy":    {spec: dummy.Spec, factory: dummy.New, numActions: 4},
	"cartpole": {spec: cartpole.Spec, factory: cartpole.New, numActions: 2},
}

func lookupEnv(name string) (envKind, error) {
	k, ok := envKinds[name]
	if !ok {
		names := make([]string, 0, len(envKinds))
		for n := range envKinds {
			names = append(names, n)
		}
		sort.Strings(names)
		return envKind{}, fmt.Errorf("unknown env %q, have %v", name, names)
	}
	return k, nil
}

// randomAction builds an action for ids with a uniform discrete "action".
func randomAction(rng *rand.Rand, ids []int32, numActions int32) envspec.Action {
	acts := make([]int32, len(ids))
	for i := range acts {
		acts[i] = rng.Int31n(numActions)
	}
	return envspec.Action{
		envspec.FieldEnvID: array.MustOf(envspec.FieldEnvID, nil, append([]int32(nil), ids...)),
		"action":           array.MustOf("action", nil, acts),
	}
}
