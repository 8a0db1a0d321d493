// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/findskills/findskills-server/pkg/profile"
)

// seedCmd loads the demo profiles into the configured storage backend.
// With the default in-memory backend the data is gone once the process
// exits, so this is mainly useful together with --config pointing at a
// bolt-backed deployment.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo profiles into the configured storage backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		profiles, _, cleanup, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := profile.SeedDemo(context.Background(), profiles)
		if err != nil {
			return fmt.Errorf("failed to seed demo profiles: %w", err)
		}

		fmt.Printf("Seeded %d demo profiles (%s backend)\n", n, cfg.Storage.Backend)
		return nil
	},
}
