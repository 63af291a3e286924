// File: cmd/hioload-sga/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Command line driver for the loopback datapath.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/momentics/hioload-sga/control"
	"github.com/spf13/cobra"
)

// Version of the command line driver.
const Version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "hioload-sga",
		Short: "scatter-gather serialization datapath",
		Long: fmt.Sprintf(`hioload-sga (v%s)

Drives a single-worker datapath over an in-process loopback queue.
Settings come from an optional config file, .env files and HIOLOAD_*
environment variables (e.g. HIOLOAD_COPY_THRESHOLD=1KB).`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hioload-sga v%s\n", Version)
		},
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			printSorted(cmd, cfg.Map())
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringSlice("env-file", []string{".env", ".env.local"}, "env files loaded before the environment is read")
	rootCmd.AddCommand(versionCmd, configCmd, echoCmd)
}

func loadConfig(cmd *cobra.Command) (control.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	return control.LoadConfig(path, envFiles...)
}

func printSorted(cmd *cobra.Command, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", k, m[k])
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
