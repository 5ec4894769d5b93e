// Command cgctl runs database migrations and manages accounts offline.
//
//	cgctl [-config path] migrate up|down
//	cgctl [-config path] user add <email> <password> [role]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/config"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	configPath := flag.String("config", config.Path(), "path to config.yml")
	verbose := flag.Bool("v", false, "log repository internals")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger := zap.NewNop()
	if *verbose {
		zapLogger, _ = zap.NewDevelopment()
	}

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.URL, zapLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch {
	case args[0] == "migrate" && args[1] == "up":
		if err := repository.MigrateDB(db, zapLogger); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Info("Database is up to date")

	case args[0] == "migrate" && args[1] == "down":
		if err := repository.RollbackDB(db, zapLogger); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Info("Database rolled back")

	case args[0] == "user" && args[1] == "add" && len(args) >= 4:
		role := ""
		if len(args) > 4 {
			role = args[4]
		}
		if err := repository.MigrateDB(db, zapLogger); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		auth := service.NewAuthService(repository.NewAuthRepository(db, zapLogger), cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute, zapLogger)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		created, err := auth.EnsureUser(ctx, args[2], args[3], role)
		if err != nil {
			log.Fatalf("Failed to add user: %v", err)
		}
		if created {
			log.WithField("email", args[2]).Info("User created")
		} else {
			log.WithField("email", args[2]).Warn("User already exists, nothing changed")
		}

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  cgctl [-config path] [-v] migrate up
  cgctl [-config path] [-v] migrate down
  cgctl [-config path] [-v] user add <email> <password> [role]
`)
}
