// Package cli implements maintctl, the administration tool for the
// maintenance service.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/bootstrap"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/config"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/observability"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/service"
)

// Runtime is what every subcommand works against.
type Runtime struct {
	Config *config.Config
	Logger *zap.Logger
	Stores *bootstrap.Stores
}

// Opener builds a Runtime. Commands call it lazily so --help needs no database.
type Opener func(ctx context.Context) (*Runtime, error)

// NewRootCmd assembles maintctl. out receives command output.
func NewRootCmd(open Opener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "maintctl",
		Short: "Administer the maintenance ticket service",
		Long: `maintctl runs one-off administration tasks against the maintenance
service database: applying migrations, seeding dropdown lists, creating
accounts and printing work orders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newMigrateCmd(open))
	root.AddCommand(newSeedSettingsCmd(open))
	root.AddCommand(newUserCmd(open))
	root.AddCommand(newExportPDFCmd(open))
	return root
}

// Execute runs maintctl against the environment configuration.
func Execute(ctx context.Context, out io.Writer) error {
	return NewRootCmd(OpenFromEnv, out).ExecuteContext(ctx)
}

// OpenFromEnv loads config the way the API server does. Migrations are left
// to the migrate command.
func OpenFromEnv(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pgCfg := cfg.Postgres
	pgCfg.RunMigrations = false
	stores, err := bootstrap.OpenStores(ctx, pgCfg, logger)
	if err != nil {
		return nil, err
	}
	return &Runtime{Config: cfg, Logger: logger, Stores: stores}, nil
}

// Close releases the runtime's resources.
func (r *Runtime) Close() {
	r.Stores.Close()
	_ = r.Logger.Sync()
}

func (r *Runtime) settingsService() *service.SettingsService {
	return service.NewSettingsService(service.SettingsDependencies{
		Repo:   r.Stores.Settings,
		Logger: r.Logger,
	})
}

func (r *Runtime) ticketService() *service.TicketService {
	return service.NewTicketService(service.TicketDependencies{
		TicketRepo:  r.Stores.Tickets,
		HistoryRepo: r.Stores.History,
		Settings:    r.settingsService(),
		Logger:      r.Logger,
		Workflow:    domain.WorkflowOptions{LeaderCheck: r.Config.Workflow.LeaderCheck},
		Location:    r.Config.App.Location(),
	})
}

func (r *Runtime) userService() *service.UserService {
	return service.NewUserService(service.UserDependencies{
		UserRepo:   r.Stores.Users,
		Logger:     r.Logger,
		BcryptCost: r.Config.Auth.BcryptCost,
		Owner:      r.Config.Auth.BootstrapUsername,
	})
}

func withRuntime(open Opener, fn func(cmd *cobra.Command, args []string, rt *Runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(cmd, args, rt)
	}
}
