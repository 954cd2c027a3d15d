// File: cmd/envpool-bench/spec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/envspec"
)

type fieldDoc struct {
	Name   string  `json:"name"`
	DType  string  `json:"dtype"`
	Shape  []int   `json:"shape"`
	Player bool    `json:"per_player,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
}

type specDoc struct {
	Env    string         `json:"env"`
	Config map[string]any `json:"config"`
	State  []fieldDoc     `json:"state"`
	Action []fieldDoc     `json:"action"`
}

func newSpecCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Print the resolved config and field layout of an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			out, err := sonnet.Marshal(describeSpec(f.env, spec))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	addConfigFlags(cmd.Flags(), f)
	return cmd
}

func describeSpec(name string, spec *envspec.Spec) specDoc {
	return specDoc{
		Env:    name,
		Config: spec.Config.ToMap(),
		State:  describeFields(spec.State),
		Action: describeFields(spec.Action),
	}
}

func describeFields(fields []array.ShapeSpec) []fieldDoc {
	out := make([]fieldDoc, len(fields))
	for i, f := range fields {
		d := fieldDoc{
			Name:   f.Name,
			DType:  f.DType.String(),
			Shape:  append([]int{}, f.RowShape()...),
			Player: f.IsPlayer(),
		}
		// Unbounded limits do not survive JSON encoding.
		if !math.IsInf(f.Min, 0) {
			d.Min = f.Min
		}
		if !math.IsInf(f.Max, 0) {
			d.Max = f.Max
		}
		out[i] = d
	}
	return out
}
