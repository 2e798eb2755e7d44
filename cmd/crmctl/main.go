package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"potencialize/internal/app"
	"potencialize/internal/authz"
	"potencialize/internal/config"
	"potencialize/internal/migrate"
	"potencialize/internal/models"
	"potencialize/internal/services"
	"potencialize/pkg/logger"
)

// opsActor is the identity used for commands that go through the services.
var opsActor = &models.User{Name: "crmctl", RoleID: authz.RoleAdmin, Active: true}

var rootCmd = &cobra.Command{
	Use:           "crmctl",
	Short:         "Potencialize operations CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default config/config.yaml or $CONFIG_PATH)")
	rootCmd.AddCommand(serveCmd(), migrateCmd(), rolesCmd(), slaCmd(), cascadeCmd(), outboxCmd(), bootstrapCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return os.Getenv("CONFIG_PATH")
}

func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath(cmd))
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: "console"}), nil
}

// withApp builds the full application for one command and closes it after.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background()) //nolint:errcheck
	return fn(ctx, a)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(configPath(cmd))
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}

	open := func(cmd *cobra.Command) (*sql.DB, *config.Config, *zap.Logger, error) {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return nil, nil, nil, err
		}
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, cfg, log, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, log, err := open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			return migrate.Up(db, cfg.Database.Name, log)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer")
				}
				steps = n
			}
			db, cfg, _, err := open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			return migrate.Down(db, cfg.Database.Name, steps)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, _, err := open(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			v, dirty, err := migrate.Version(db, cfg.Database.Name)
			if err != nil {
				return err
			}
			fmt.Printf("version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	})
	return cmd
}

func rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List roles and their permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				roles, err := a.Services.Role.List(ctx, opsActor)
				if err != nil {
					return err
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "System", "Client", "Permissions"})
				for _, r := range roles {
					tw.AppendRow(table.Row{r.ID, r.Name, r.IsSystem, r.Client, strings.Join(r.Permissions, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func slaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sla", Short: "Support SLA reports"}
	cmd.AddCommand(&cobra.Command{
		Use:   "tickets",
		Short: "Open tickets with their SLA status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				tickets, err := a.Services.Ticket.Overview(ctx)
				if err != nil {
					return err
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Project", "Title", "Priority", "Status", "SLA", "Waiting"})
				for _, t := range tickets {
					tw.AppendRow(table.Row{t.ID, t.ProjectID, t.Title, t.Priority, t.Status, t.SLA.Status, t.SLA.Label})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "", "total", len(tickets)})
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func cascadeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cascade", Short: "Inspect and resume automation runs"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List runs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				runs, err := a.Services.Cascade.ListRuns(ctx, models.CascadeStatus(status))
				if err != nil {
					return err
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Run", "Entity", "Transition", "Status", "Project", "Started", "Error"})
				for _, r := range runs {
					project := ""
					if r.ProjectID != nil {
						project = strconv.FormatInt(*r.ProjectID, 10)
					}
					tw.AppendRow(table.Row{
						r.ID, fmt.Sprintf("%s/%d", r.EntityKind, r.EntityID), r.Transition, r.Status,
						project, r.StartedAt.Format(time.RFC3339), r.Error,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().String("status", string(models.CascadeFailed), "running, completed, failed or abandoned")

	resume := &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Resume one run, or every failed and stale run when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(args) == 0 {
					n, err := a.Services.Cascade.ResumePending(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("resumed %d run(s)\n", n)
					return nil
				}
				run, err := a.Services.Cascade.Resume(ctx, opsActor, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("run %s is %s\n", run.ID, run.Status)
				return nil
			})
		},
	}
	cmd.AddCommand(list, resume)
	return cmd
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "outbox", Short: "Notification outbox"}
	drain := &cobra.Command{
		Use:   "drain",
		Short: "Redeliver parked notifications now",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Dispatcher.Drain(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Printf("delivered %d notification(s)\n", n)
				return nil
			})
		},
	}
	drain.Flags().Int("limit", 500, "maximum entries to process")
	cmd.AddCommand(drain)
	return cmd
}

func bootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first administrator on an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Services.User.Bootstrap(ctx, services.NewUser{
					Name:        name,
					Email:       email,
					Password:    password,
					CompanyName: "Potencialize",
					RoleID:      authz.RoleAdmin,
				})
				if err != nil {
					return err
				}
				fmt.Printf("created admin %s (id %d)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("name", "Administrador", "display name")
	cmd.Flags().String("email", "", "login e-mail")
	cmd.Flags().String("password", "", "password (or $ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
