// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package cli implements the findskills-server command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/findskills/findskills-server/internal/config"
)

var configFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "findskills-server",
	Short: "FindSkills authentication and profile server",
	Long: `findskills-server runs the FindSkills backend: password and passkey
(WebAuthn) authentication, session management, and student profile
lookups for the FindSkills matching platform.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: built-in development configuration)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration file if one was given, otherwise the
// development defaults with environment overrides applied.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	if envConfig := os.Getenv("FINDSKILLS_CONFIG"); envConfig != "" {
		return config.Load(envConfig)
	}

	cfg := config.Default()
	config.ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
