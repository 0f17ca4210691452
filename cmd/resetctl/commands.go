package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tenantcare/auth-service/internal/config"
	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/infrastructure/db/postgres"
	"github.com/tenantcare/auth-service/internal/infrastructure/security"
)

// cliEnv holds what the commands need from the outside world.
type cliEnv struct {
	out    io.Writer
	openDB func(addr string) (*sql.DB, error)

	migrateUp     func(ctx context.Context, db *sql.DB) error
	migrateDown   func(ctx context.Context, db *sql.DB) error
	migrateStatus func(ctx context.Context, db *sql.DB) error
}

func defaultEnv() cliEnv {
	return cliEnv{
		out: os.Stdout,
		openDB: func(addr string) (*sql.DB, error) {
			return config.NewDB(addr, false)
		},
		migrateUp:     postgres.Migrate,
		migrateDown:   postgres.MigrateDown,
		migrateStatus: postgres.MigrationStatus,
	}
}

func newRootCommand(env cliEnv) *cobra.Command {
	var dbAddr string

	cmd := &cobra.Command{
		Use:           "resetctl",
		Short:         "Operations tool for the password reset service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(env.out)
	cmd.PersistentFlags().StringVar(&dbAddr, "db", os.Getenv("DB_ADDR"), "Postgres DSN (defaults to $DB_ADDR)")

	withDB := func(cmd *cobra.Command, fn func(ctx context.Context, db *sql.DB) error) error {
		if strings.TrimSpace(dbAddr) == "" {
			return errors.New("no database configured: pass --db or set DB_ADDR")
		}
		db, err := env.openDB(dbAddr)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		return fn(commandContext(cmd), db)
	}

	cmd.AddCommand(newMigrateCommand(env, withDB))
	cmd.AddCommand(newSeedCommand(env, withDB))
	cmd.AddCommand(newAdminTokenCommand(env))
	cmd.AddCommand(newBlockIPCommand(env, withDB))
	cmd.AddCommand(newActivityCommand(env, withDB))
	return cmd
}

type dbRunner func(cmd *cobra.Command, fn func(ctx context.Context, db *sql.DB) error) error

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newMigrateCommand(env cliEnv, withDB dbRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	step := func(use, short string, fn func(ctx context.Context, db *sql.DB) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, fn)
			},
		}
	}

	cmd.AddCommand(step("up", "Apply all pending migrations", env.migrateUp))
	cmd.AddCommand(step("down", "Roll back the most recent migration", env.migrateDown))
	cmd.AddCommand(step("status", "Print the state of every migration", env.migrateStatus))
	return cmd
}

func newSeedCommand(env cliEnv, withDB dbRunner) *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo tenant and its users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
				if err := postgres.SeedDemo(ctx, postgres.NewStore(db), security.NewBcryptHasher(cost)); err != nil {
					return err
				}
				fmt.Fprintf(env.out, "seeded tenant %s (%s)\n", postgres.DemoTenant.Schema, postgres.DemoTenant.ID)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&cost, "bcrypt-cost", 12, "bcrypt cost for the seeded passwords")
	return cmd
}

func newAdminTokenCommand(env cliEnv) *cobra.Command {
	var (
		userID    string
		tenantID  string
		role      string
		superuser bool
		ttl       time.Duration
		secret    string
		issuer    string
	)

	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint an access token for calling the admin endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("no signing secret: pass --secret or set JWT_SECRET")
			}
			if !domain.IsValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			signer := security.NewJWTSigner(secret, issuer)
			tok, err := signer.SignAccessToken(userID, tenantID, role, superuser, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(env.out, tok)
			return nil
		},
	}

	issuerDefault := os.Getenv("JWT_ISSUER")
	if issuerDefault == "" {
		issuerDefault = "auth-service"
	}

	cmd.Flags().StringVar(&userID, "user", "", "Subject user id")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "Role claim (user, manager, admin)")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "Set the superuser claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "Token lifetime")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret (defaults to $JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", issuerDefault, "Issuer claim")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newBlockIPCommand(env cliEnv, withDB dbRunner) *cobra.Command {
	var tenantRef, ip string

	cmd := &cobra.Command{
		Use:   "block-ip",
		Short: "Block password resets from an IP address for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
				t, err := resolveTenant(ctx, db, tenantRef)
				if err != nil {
					return err
				}
				if err := postgres.NewBlockedIPRepo(db).Block(ctx, t.ID, ip); err != nil {
					return err
				}
				fmt.Fprintf(env.out, "blocked %s for tenant %s\n", strings.TrimSpace(ip), t.Schema)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tenantRef, "tenant", "", "Tenant id or schema name")
	cmd.Flags().StringVar(&ip, "ip", "", "IP address to block")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}

func newActivityCommand(env cliEnv, withDB dbRunner) *cobra.Command {
	var (
		tenantRef string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List the most recent password reset activity of a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
				t, err := resolveTenant(ctx, db, tenantRef)
				if err != nil {
					return err
				}
				items, err := postgres.NewActivityRepo(db).ListRecent(ctx, t.ID, limit)
				if err != nil {
					return err
				}
				return printActivities(env.out, items)
			})
		},
	}

	cmd.Flags().StringVar(&tenantRef, "tenant", "", "Tenant id or schema name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to show")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// resolveTenant accepts either a tenant id or a schema name.
func resolveTenant(ctx context.Context, db *sql.DB, ref string) (domain.Tenant, error) {
	repo := postgres.NewTenantRepo(db)
	ref = strings.TrimSpace(ref)
	if _, err := uuid.Parse(ref); err == nil {
		return repo.GetByID(ctx, ref)
	}
	return repo.GetBySchema(ctx, ref)
}

func printActivities(w io.Writer, items []domain.UserActivity) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tSUCCESS\tUSER\tBY\tIP\tREASON")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\t%s\n",
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.Action,
			a.Success,
			dash(a.UserID),
			dash(a.PerformedBy),
			dash(a.IPAddress),
			a.Reason(),
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
