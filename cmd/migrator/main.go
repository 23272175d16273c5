package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/linemk/auth-service/internal/config"
)

// buildMigrateDSN добавляет к DSN имя таблицы миграций
func buildMigrateDSN(dsn string, migrationTable string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid dsn: %w", err)
	}
	q := u.Query()
	q.Set("x-migrations-table", migrationTable)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func main() {
	var configPath, migrationsPathFlag string
	var down bool
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back all migrations")
	flag.Parse()

	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	cfg := config.MustLoadByPath(configPath)

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}

	dsn, err := cfg.Database.DSN()
	if err != nil {
		log.Fatalf("failed to build dsn: %v", err)
	}
	dsnForMigrate, err := buildMigrateDSN(dsn, cfg.Migrations.Table)
	if err != nil {
		log.Fatal(err)
	}

	// Создаем объект мигратора
	m, err := migrate.New("file://"+migrationsPath, dsnForMigrate)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to apply")
			return
		}
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("failed to read migration version: %v", err)
	}
	log.Printf("Migrations applied successfully, version=%d dirty=%v", version, dirty)
}
