// Command migrate runs schema operations for the newsboard database.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"newsboard/internal/config"
	"newsboard/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dialector, err := database.Dialector(cfg)
	if err != nil {
		return err
	}
	db, err := database.Open(dialector)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "auto":
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		tables, err := database.Status(db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		for _, t := range tables {
			log.Printf("%-10s exists=%t", t.Table, t.Exists)
		}
	default:
		return usage()
	}
	return nil
}
