// File: cmd/envpool-bench/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// envpool-bench drives a pool of one of the bundled environments and reports
// throughput. Options come from flags, ENVPOOL_* variables and dotenv files.

package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A local .env is optional.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "envpool-bench",
		Short:         "Measure step throughput of a vectorized environment pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd(), newSpecCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("[bench] %v", err)
		os.Exit(1)
	}
}
