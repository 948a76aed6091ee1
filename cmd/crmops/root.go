package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/crmops/internal/domain/audit"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation/builtin"
	"github.com/matiasleandrokruk/crmops/internal/infra/config"
	"github.com/matiasleandrokruk/crmops/internal/infra/eventbus"
	"github.com/matiasleandrokruk/crmops/internal/infra/logger"
	"github.com/matiasleandrokruk/crmops/internal/infra/sqlite"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "crmops",
		Short:         "Run CRM operations as JSON request/response calls",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides DATABASE_PATH)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newServeCmd(opts),
		newExecCmd(opts),
		newOpsCmd(opts),
		newInvocationsCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load resolves the configuration: defaults, file, env, then flags.
func (o *rootOptions) load() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

// app is the wired runtime shared by the serve, exec, ops, invocations and
// mcp commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *sql.DB
	bus       *eventbus.Bus
	audit     *audit.AuditService
	registry  *operation.Registry
	auditDone chan struct{}
}

func (o *rootOptions) openApp(ctx context.Context) (*app, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	lggr, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.OpenMigrated(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", cfg.DatabasePath, err)
	}

	a := &app{
		cfg:       cfg,
		logger:    lggr,
		db:        db,
		bus:       eventbus.New(),
		audit:     audit.NewAuditService(db, lggr.Named("audit")),
		auditDone: make(chan struct{}),
	}
	// The subscriber drains until the bus closes so close() loses no rows.
	events := a.bus.Subscribe(operation.TopicCompleted)
	go func() {
		defer close(a.auditDone)
		a.audit.Start(context.WithoutCancel(ctx), events)
	}()

	a.registry = operation.NewRegistry(a.bus)
	if err := builtin.RegisterAll(a.registry, builtin.NewStores(db)); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	a.bus.Close()
	<-a.auditDone
	if dropped := a.bus.Dropped(); dropped > 0 {
		a.logger.Warn("audit events dropped", zap.Int64("count", dropped))
	}
	_ = a.db.Close()
	_ = a.logger.Sync()
}
