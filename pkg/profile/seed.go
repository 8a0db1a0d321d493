// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package profile

import (
	"context"
	"errors"
	"fmt"
)

// SeedDemo populates the store with the demo profiles used in development
// setups. Profiles that already exist are left untouched. Returns the
// number of profiles created.
func SeedDemo(ctx context.Context, store Store) (int, error) {
	type seed struct {
		login    string
		password string
		profile  Profile
	}

	seeds := []seed{
		{
			login:    "janek",
			password: "password123",
			profile: Profile{
				Login:            "janek",
				SchoolType:       SchoolSecondary,
				SchoolClass:      3,
				City:             "Warszawa",
				FavoriteSubjects: "angular,typescript,html,css",
				Bio:              "Fullstack enthusiast. Loves Angular and clean code.",
			},
		},
		{
			login:    "asia",
			password: "asiaspass",
			profile: Profile{
				Login:            "asia",
				SchoolType:       SchoolUniversity,
				SchoolClass:      1,
				City:             "Krakow",
				FavoriteSubjects: "python,machine learning,data science",
				Bio:              "Interested in data and ML.",
			},
		},
		{
			login:    "marek",
			password: "marekpw",
			profile: Profile{
				Login:            "marek",
				SchoolType:       SchoolSecondary,
				SchoolClass:      2,
				City:             "Gdansk",
				FavoriteSubjects: "java,spring,sql",
				Bio:              "Backend dev, likes Java and databases.",
			},
		},
		{
			login:    "ola",
			password: "olapass123",
			profile: Profile{
				Login:            "ola",
				SchoolType:       SchoolSecondary,
				City:             "Poznan",
				FavoriteSubjects: "html,css,design",
				Bio:              "Interested in UI/UX and frontend.",
			},
		},
	}

	created := 0
	for _, s := range seeds {
		hash, err := HashPassword(s.password)
		if err != nil {
			return created, fmt.Errorf("hash password for %q: %w", s.login, err)
		}
		p := s.profile
		p.PasswordHash = hash
		if err := store.Create(ctx, &p); err != nil {
			if errors.Is(err, ErrProfileExists) {
				continue
			}
			return created, fmt.Errorf("seed profile %q: %w", s.login, err)
		}
		created++
	}
	return created, nil
}
