package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"book-store/internal/config"
	"book-store/internal/database"
	"book-store/internal/logger"
	"book-store/internal/repository"
	"book-store/internal/service"

	"go.uber.org/zap"
)

const usage = `usage: manage <command> [arguments]

commands:
  createsupercustomer <username> <password>   create a staff superuser
  createapplication <name>                    register an OAuth2 client
  migrate [-status]                           apply or list database migrations
`

var errUsage = errors.New("invalid arguments")

// commands are the collaborators a management command may need.
type commands struct {
	customers service.CustomerService
	auth      service.AuthService
	migrate   func(status bool) error
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()

	store := repository.NewStore(dbService.DB())
	cmds := commands{
		customers: service.NewCustomerService(store, log),
		auth: service.NewAuthService(store, service.AuthOptions{
			JWTSecret:       cfg.JWT.Secret,
			AccessTokenTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
			RefreshTokenTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
			OAuthTokenTTL:   time.Duration(cfg.OAuth.AccessTokenExpiry) * time.Second,
		}),
		migrate: func(status bool) error {
			if status {
				return database.MigrationStatus(dbService.DB(), cfg.Database.MigrationsDir)
			}
			return database.RunMigrations(dbService.DB(), cfg.Database.MigrationsDir, log)
		},
	}

	if err := run(context.Background(), os.Args[1:], os.Stdout, cmds); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, cmds commands) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "createsupercustomer":
		if len(args) != 3 {
			return errUsage
		}
		customer, err := cmds.customers.CreateSuperCustomer(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Superuser %s created (id %s)\n", customer.Username, customer.ID)
		return nil

	case "createapplication":
		if len(args) != 2 {
			return errUsage
		}
		app, secret, err := cmds.auth.CreateApplication(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Application %s created\nclient_id: %s\nclient_secret: %s\n", app.Name, app.ClientID, secret)
		fmt.Fprintln(out, "The secret is shown only once.")
		return nil

	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		status := fs.Bool("status", false, "list migrations instead of applying them")
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() > 0 {
			return errUsage
		}
		return cmds.migrate(*status)

	default:
		return errUsage
	}
}
