// Command seed fills the database with demo board data.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"newsboard/internal/config"
	"newsboard/internal/database"
	"newsboard/internal/seed"
)

func main() {
	presetFile := flag.String("presets", "", "YAML preset file (see seed/presets.yml)")
	presetName := flag.String("preset", "", "Preset to apply from the preset file")
	numUsers := flag.Int("users", seed.DefaultPreset.Users, "Number of users to create")
	numPosts := flag.Int("posts", seed.DefaultPreset.Posts, "Number of posts to create")
	randSeed := flag.Int64("seed", 0, "Random seed (0 for a random run)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	preset := seed.DefaultPreset
	preset.Users = *numUsers
	preset.Posts = *numPosts

	if *presetFile != "" {
		f, err := os.Open(*presetFile)
		if err != nil {
			log.Fatalf("Failed to open preset file: %v", err)
		}
		presets, err := seed.LoadPresets(f)
		_ = f.Close()
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		p, ok := presets[*presetName]
		if !ok {
			log.Fatalf("Unknown preset %q, available: %v", *presetName, seed.PresetNames(presets))
		}
		preset = p
		log.Printf("Applying preset %s (ignoring count flags)", preset.Name)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	s, err := seed.NewSeeder(db, seed.FactoryOptions{Seed: *randSeed})
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, preset)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d replies, %d likes",
		sum.Users, sum.Posts, sum.Comments, sum.Replies, sum.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
