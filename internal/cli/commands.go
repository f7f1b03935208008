package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/pdf"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/persistence"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/service"
)

var errNoDatabase = errors.New("POSTGRES_DSN is required for this command")

func newMigrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations",
		Long: `Apply every .sql file in POSTGRES_MIGRATIONS_DIR in lexical order.
Migrations are idempotent and safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, _ []string, rt *Runtime) error {
			if rt.Stores.Postgres == nil {
				return errNoDatabase
			}
			dir := rt.Config.Postgres.MigrationsDir
			if err := persistence.RunMigrations(cmd.Context(), rt.Stores.Postgres.PoolHandle(), dir, rt.Logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied from %s\n", dir)
			return nil
		}),
	}
}

func newSeedSettingsCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-settings",
		Short: "Load dropdown lists from a YAML file",
		Long: `Replace settings lists with the contents of a YAML file. Each top-level
key names a list (departments, job_types, sal01_areas, sal02_areas,
cause_categories, maintenance_results); lists absent from the file are
left alone.

Example:
  departments:
    - name: Production
      code: PD
  job_types:
    - name: Breakdown`,
		Args: cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, _ []string, rt *Runtime) error {
			path, err := cmd.Flags().GetString("file")
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open settings file: %w", err)
			}
			defer f.Close()

			lists, err := service.ParseSettingsFile(f)
			if err != nil {
				return err
			}
			if err := rt.settingsService().Seed(cmd.Context(), lists); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d settings lists\n", len(lists))
			return nil
		}),
	}
	cmd.Flags().StringP("file", "f", "", "YAML file with settings lists")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newUserCmd(open Opener) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withRuntime(open, func(cmd *cobra.Command, _ []string, rt *Runtime) error {
			flags := cmd.Flags()
			username, _ := flags.GetString("username")
			password, _ := flags.GetString("password")
			fullname, _ := flags.GetString("fullname")
			role, _ := flags.GetString("role")

			user, err := rt.userService().CreateUser(cmd.Context(), service.UserCreateInput{
				Username: username,
				Password: password,
				Fullname: fullname,
				Role:     domain.Role(strings.ToLower(strings.TrimSpace(role))),
			})
			if err != nil {
				return err
			}
			rt.Logger.Info("user created from cli", zap.String("username", user.Username), zap.String("role", string(user.Role)))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.Role)
			return nil
		}),
	}
	add.Flags().String("username", "", "login name")
	add.Flags().String("password", "", "initial password")
	add.Flags().String("fullname", "", "name shown on tickets and forms")
	add.Flags().String("role", string(domain.RoleRequester), "super_admin, supervisor, leader, technician or requester")

	userCmd.AddCommand(add)
	return userCmd
}

func newExportPDFCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-pdf [ticket-id...]",
		Short: "Write work-order PDFs",
		Long:  `Render each ticket to {id}.pdf in the output directory.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: withRuntime(open, func(cmd *cobra.Command, args []string, rt *Runtime) error {
			dir, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			renderer, err := pdf.NewRenderer(rt.Config.PDF, rt.Config.App.Location())
			if err != nil {
				return err
			}
			exporter := service.NewExportService(rt.ticketService(), renderer, rt.Logger)

			var failed int
			for _, id := range args {
				path := filepath.Join(dir, safeFileName(service.FileName(id)))
				if err := exportOne(cmd, exporter, id, path); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d exports failed", failed, len(args))
			}
			return nil
		}),
	}
	cmd.Flags().StringP("out", "o", ".", "output directory")
	return cmd
}

func exportOne(cmd *cobra.Command, exporter *service.ExportService, id, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := exporter.ExportPDF(cmd.Context(), []string{id}, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// safeFileName keeps renamed IDs containing separators inside the output dir.
func safeFileName(name string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(name)
}
