package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/database"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/prompt"
	"github.com/taufik7000/efarina-finance-flow/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Display name (defaults to the email's local part)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	role := fs.String("role", string(models.RoleUser), "Role: admin, editor, finance or user")
	department := fs.String("department", models.DefaultDepartment, "Department")
	configPath := fs.String("config", "", "Path to config.yaml")
	dbPath := fs.String("db", "", "Path to database file (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-role <role>] [-department <dept>] [-password <password>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	password := *passwordFlag
	if password == "" {
		password, err = prompt.New(stdin, stdout).Password("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	displayName := *name
	if displayName == "" {
		displayName, _, _ = strings.Cut(*email, "@")
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	auth := service.NewAuthService(db, cfg.JWT, cfg.Security, nil, nil, logger)

	id, err := auth.CreateIdentity(context.Background(), *email, password, displayName, models.Role(*role), *department)
	if err != nil {
		if errors.Is(err, service.ErrIdentityExists) {
			return fmt.Errorf("user %s already exists", *email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", id.Email, id.ID)
	return nil
}
