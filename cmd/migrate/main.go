package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/example/devconnector/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, version, force")
		steps   = flag.Int("steps", 0, "Number of migration steps (for up/down, 0 = all)")
		version = flag.Uint("version", 0, "Target version (for force command)")
		dir     = flag.String("dir", "./migrations", "Migrations directory")
	)
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.DBAdapter != "postgres" {
		log.Fatalf("Migrations only apply to PostgreSQL. Current adapter: %s", cfg.DBAdapter)
	}
	dsn, err := cfg.BuildPostgresDSN()
	if err != nil {
		log.Fatalf("PostgreSQL config error: %v", err)
	}

	m, closeDB, err := openMigrator(*dir, dsn)
	if err != nil {
		log.Fatalf("Migrator init failed: %v", err)
	}
	defer closeDB()

	switch *command {
	case "up":
		err = stepOrAll(m, *steps, true)
		if err == migrate.ErrNoChange {
			fmt.Println("Database is up to date")
			return
		}
		if err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		fmt.Println("Migrations applied")
	case "down":
		err = stepOrAll(m, *steps, false)
		if err == migrate.ErrNoChange {
			fmt.Println("Nothing to roll back")
			return
		}
		if err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		fmt.Println("Migrations rolled back")
	case "version":
		v, dirty, err := m.Version()
		if err == migrate.ErrNilVersion {
			fmt.Println("No migrations applied yet")
			return
		}
		if err != nil {
			log.Fatalf("Version check failed: %v", err)
		}
		fmt.Printf("Version: %d (dirty: %v)\n", v, dirty)
	case "force":
		if err := m.Force(int(*version)); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		fmt.Printf("Forced version to %d\n", *version)
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func openMigrator(dir, dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, func() { db.Close() }, nil
}

func stepOrAll(m *migrate.Migrate, steps int, up bool) error {
	if steps > 0 {
		if up {
			return m.Steps(steps)
		}
		return m.Steps(-steps)
	}
	if up {
		return m.Up()
	}
	return m.Down()
}
