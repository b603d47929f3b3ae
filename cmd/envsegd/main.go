package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/auditops/envsegd/internal/application"
	analysisapp "github.com/auditops/envsegd/internal/application/analysis"
	"github.com/auditops/envsegd/internal/application/extract"
	"github.com/auditops/envsegd/internal/application/workflow"
	"github.com/auditops/envsegd/internal/config"
	"github.com/auditops/envsegd/internal/domain/analysis"
	"github.com/auditops/envsegd/internal/domain/inventory"
	agentsinfra "github.com/auditops/envsegd/internal/infra/ai/agents"
	mysqldb "github.com/auditops/envsegd/internal/infra/db/mysql"
	postgresdb "github.com/auditops/envsegd/internal/infra/db/postgres"
	"github.com/auditops/envsegd/internal/infra/httpserver"
	"github.com/auditops/envsegd/internal/infra/storage"
	"github.com/auditops/envsegd/internal/middleware"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "envsegd",
		Short:         "Environment segregation audit: extract inventories and analyze DEV/TEST/PROD deviations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config.yaml")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newScheduleCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	return root
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// deps holds everything the commands wire up.
type deps struct {
	cfg     *config.Config
	log     *slog.Logger
	cleanup []func() error
	manager *workflow.Manager
	runs    analysis.RunRepository
	db      *sql.DB
}

func (d *deps) close() {
	for i := len(d.cleanup) - 1; i >= 0; i-- {
		_ = d.cleanup[i]()
	}
}

func buildDeps(ctx context.Context, configPath, dataDir, outputDir string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	if dataDir != "" {
		cfg.Dirs.Data = dataDir
	}
	if outputDir != "" {
		cfg.Dirs.Output = outputDir
	}
	if err := cfg.ValidateAgents(); err != nil {
		return nil, err
	}

	log, closeLog := config.SetupLogger(cfg.Log.File, cfg.LogLevel())
	d := &deps{cfg: cfg, log: log, cleanup: []func() error{closeLog}}

	if err := os.MkdirAll(cfg.Dirs.Output, 0o755); err != nil {
		d.close()
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	gateway, err := agentsinfra.NewGateway(cfg.Agents.APIKey, cfg.Agents.Endpoint)
	if err != nil {
		d.close()
		return nil, err
	}
	client := agentsinfra.NewRunClient(gateway, cfg.Agents.Deployment, log)

	batcher := analysisapp.NewBatcher(client, log)
	batcher.BatchSize = cfg.Analysis.BatchSize

	var artifacts analysis.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("minio init error: %w", err)
		}
		artifacts = store
	}

	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			d.close()
			return nil, fmt.Errorf("mysql connect error: %w", err)
		}
		d.db = db
		d.cleanup = append(d.cleanup, db.Close)
		d.runs = mysqldb.NewRunRepository(db)
	case "postgres":
		db, err := postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			d.close()
			return nil, fmt.Errorf("postgres connect error: %w", err)
		}
		d.db = db
		d.cleanup = append(d.cleanup, db.Close)
		d.runs = postgresdb.NewRunRepository(db)
	case "":
		// run history disabled
	default:
		d.close()
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Database.Driver)
	}

	clock := application.SystemClock{}
	d.manager = &workflow.Manager{
		Extract: &extract.Service{
			DataDir:        cfg.Dirs.Data,
			OutputDir:      cfg.Dirs.Output,
			SourceWorkbook: cfg.Source.Workbook,
			Clock:          clock,
			Log:            log,
		},
		Analysis: &analysisapp.Service{
			Batcher:     batcher,
			Artifacts:   artifacts,
			Clock:       clock,
			InputDir:    cfg.Dirs.Output,
			OutputDir:   cfg.Dirs.Output,
			Environment: cfg.Analysis.Environment,
			Log:         log,
		},
		Runs:  d.runs,
		Clock: clock,
		Log:   log,
	}
	return d, nil
}

func selectedKinds(process string) ([]inventory.Kind, error) {
	if process == "all" {
		return inventory.AllKinds(), nil
	}
	kind, err := inventory.ParseKind(process)
	if err != nil {
		return nil, err
	}
	return []inventory.Kind{kind}, nil
}

func newRunCmd(configPath *string) *cobra.Command {
	var process, dataDir, outputDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Single execution of the selected workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := selectedKinds(process)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, err := buildDeps(ctx, *configPath, dataDir, outputDir)
			if err != nil {
				return err
			}
			defer d.close()

			d.log.Info("running in single execution mode", "processes", process)
			return d.manager.RunSelected(ctx, kinds)
		},
	}
	cmd.Flags().StringVar(&process, "process", "env", "process to run: env, db, server, url, cloud or all")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory containing input data files")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for output files")
	return cmd
}

func newScheduleCmd(configPath *string) *cobra.Command {
	var process, dataDir, outputDir string
	var interval, duration int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Periodic execution of the selected workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := selectedKinds(process)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, *configPath, dataDir, outputDir)
			if err != nil {
				return err
			}
			defer d.close()

			if interval > 0 {
				d.cfg.Scheduler.IntervalMinutes = interval
			}
			if cmd.Flags().Changed("duration") {
				d.cfg.Scheduler.DurationMinutes = duration
			}

			sched := &workflow.Scheduler{
				Manager:  d.manager,
				Interval: d.cfg.Interval(),
				Log:      d.log,
			}
			d.log.Info("running in periodic execution mode",
				"interval", d.cfg.Interval(), "duration", d.cfg.Duration(), "processes", process)
			sched.RunFor(ctx, kinds, d.cfg.Duration())
			return nil
		},
	}
	cmd.Flags().StringVar(&process, "process", "env", "process to schedule: env, db, server, url, cloud or all")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory containing input data files")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for output files")
	cmd.Flags().IntVar(&interval, "interval", 0, "interval in minutes between runs (overrides config)")
	cmd.Flags().IntVar(&duration, "duration", 0, "total minutes to keep the scheduler alive, 0 for indefinite")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the on-demand trigger API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, *configPath, "", "")
			if err != nil {
				return err
			}
			defer d.close()

			checkers := map[string]middleware.HealthChecker{}
			if d.db != nil {
				checkers["database"] = &middleware.DatabaseHealthChecker{DB: d.db}
			}
			handler := httpserver.NewRouter(d.manager, d.runs, d.cfg.Server.APIKey, checkers, d.log)

			addr := fmt.Sprintf(":%d", d.cfg.Server.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				d.log.Info("server listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			d.log.Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}
