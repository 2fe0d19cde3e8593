// Command migrate applies the embedded schema migrations to DATABASE_DSN.
//
//	migrate [-seed] up | down | to <version> | version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
	"ms-booking/internal/store/db"

	"github.com/joho/godotenv"
)

func main() {
	seed := flag.Bool("seed", false, "also apply the seed migration when running up")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "DATABASE_DSN not set")
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pg, err := db.Open(ctx, cfg.Database.DSN, db.PoolOptions{MaxRetries: 3, RetryDelay: 2 * time.Second}, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	runner := migrations.NewRunner(pg.Bun, migrations.MigrateOptions{AutoMigrate: true, SeedData: *seed}, log)
	if err := runner.Initialize(); err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	defer runner.Close()

	if err := run(runner, cmd, flag.Arg(1), *seed); err != nil {
		log.Error("MIGRATION", err.Error())
		runner.Close()
		os.Exit(1)
	}
}

func run(runner *migrations.Runner, cmd, arg string, seed bool) error {
	switch cmd {
	case "up":
		if seed {
			return runner.MigrateUp()
		}
		return runner.RunMigrations()
	case "down":
		return runner.MigrateDown()
	case "to":
		v, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("to: invalid version %q", arg)
		}
		return runner.MigrateTo(uint(v))
	case "version":
		v, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, down, to, version)", cmd)
	}
}
