// Command cityinfoctl is the operator CLI: it applies the embedded schema
// migrations and manages the accounts that may request API tokens.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cityinfo-api/internal/config"
	"github.com/iliyamo/cityinfo-api/internal/database"
	"github.com/iliyamo/cityinfo-api/internal/logger"
	"github.com/iliyamo/cityinfo-api/internal/model"
	"github.com/iliyamo/cityinfo-api/internal/repository"
)

func main() {
	_ = godotenv.Load()
	logger.Init(logger.Config{Env: "dev", Level: envOr("LOG_LEVEL", "info")})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)
	root := &cobra.Command{
		Use:          "cityinfoctl",
		Short:        "Operator CLI for the CityInfo API (migrations and users)",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "MySQL DSN (defaults to DB_CONNECTION_STRING or DB_* variables)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall deadline of the command")

	// withDB opens the database for the duration of one command.
	withDB := func(fn func(ctx context.Context, db *sql.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			target := dsn
			if target == "" {
				target = config.LoadDatabase().DSN()
			}
			db, err := database.Open(ctx, target)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			return fn(ctx, db)
		}
	}

	root.AddCommand(newMigrateCmd(withDB), newUserCmd(withDB))
	return root
}

type dbRunner func(fn func(ctx context.Context, db *sql.DB) error) func(*cobra.Command, []string) error

func newMigrateCmd(withDB dbRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the embedded schema migrations",
	}
	for _, c := range []struct{ use, short string }{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back the latest migration"},
		{"status", "Print the state of every migration"},
		{"version", "Print the current schema version"},
		{"redo", "Roll back and re-apply the latest migration"},
	} {
		command := c.use
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: withDB(func(ctx context.Context, db *sql.DB) error {
				return database.Migrate(ctx, db, command)
			}),
		})
	}
	return cmd
}

func newUserCmd(withDB dbRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API accounts",
	}

	var (
		u    model.User
		pw   string
		cost int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account that can request tokens",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if u.UserName == "" || pw == "" {
				return errors.New("--username and --password are required")
			}
			return nil
		},
		RunE: withDB(func(ctx context.Context, db *sql.DB) error {
			u.IsActive = true
			id, err := repository.NewUserRepo(db).Create(ctx, u, pw, cost)
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (id=%d)\n", u.UserName, id)
			return nil
		}),
	}
	add.Flags().StringVar(&u.UserName, "username", "", "Login name (unique)")
	add.Flags().StringVar(&pw, "password", "", "Password, stored as a bcrypt hash")
	add.Flags().StringVar(&u.FirstName, "first-name", "", "Given name claim")
	add.Flags().StringVar(&u.LastName, "last-name", "", "Family name claim")
	add.Flags().StringVar(&u.City, "city", "", "City claim used by authorization policies")
	add.Flags().IntVar(&cost, "bcrypt-cost", bcrypt.DefaultCost+2, "bcrypt cost")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: withDB(func(ctx context.Context, db *sql.DB) error {
			users, err := repository.NewUserRepo(db).List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tCITY\tACTIVE")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%t\n", u.ID, u.UserName, u.FirstName, u.LastName, u.City, u.IsActive)
			}
			return w.Flush()
		}),
	}

	cmd.AddCommand(add, list, setActiveCmd(withDB, "disable", false), setActiveCmd(withDB, "enable", true))
	return cmd
}

func setActiveCmd(withDB dbRunner, use string, active bool) *cobra.Command {
	var name string
	c := &cobra.Command{
		Use:   use + " <username>",
		Short: fmt.Sprintf("Mark an account as active=%t", active),
		Args:  cobra.ExactArgs(1),
		PreRun: func(_ *cobra.Command, args []string) {
			name = args[0]
		},
	}
	c.RunE = withDB(func(ctx context.Context, db *sql.DB) error {
		ok, err := repository.NewUserRepo(db).SetActive(ctx, name, active)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %q not found", name)
		}
		fmt.Printf("user %s active=%t\n", name, active)
		return nil
	})
	return c
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
