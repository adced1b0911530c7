package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"traycore/internal/blob"
	"traycore/internal/config"
	"traycore/internal/core"
	"traycore/internal/treatment"
	"traycore/pkg/domain"
)

const defaultExperiment = "default"

// Global flag values.
type globalFlags struct {
	configFile string
	traysFile  string
	experiment string
	logLevel   string
	metrics    bool
}

// app holds the collaborators wired by the root command for one invocation.
type app struct {
	flags    globalFlags
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	store    domain.AssignmentStore
	docs     blob.Store
	catalog  *treatment.Catalog
	svc      *core.Service
}

// run executes one CLI invocation. Resources are released even when the
// command fails, which cobra's post-run hooks do not guarantee.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "traycore",
		Short:         "Tray geometry and region assignment for plate experiments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return a.wire(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.flags.metrics || a.registry == nil {
				return nil
			}
			return writeMetrics(cmd.ErrOrStderr(), a.registry)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "config file (default: ./traycore.yaml)")
	pf.StringVar(&a.flags.traysFile, "trays", "", "tray configuration file (overrides trays_file)")
	pf.StringVar(&a.flags.experiment, "experiment", defaultExperiment, "experiment whose regions are loaded")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
	pf.BoolVar(&a.flags.metrics, "metrics", false, "print collected metrics to stderr on exit")

	root.AddCommand(
		versionCmd(),
		a.labelsCmd(),
		a.gridCmd(),
		a.createCmd(),
		a.removeCmd(),
		a.setCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.validateCmd(),
		a.migrateCmd(),
		a.applyTreatmentCmd(),
		a.resolveCmd(),
	)
	return root
}

// wire loads configuration and builds the session for the selected experiment.
func (a *app) wire(ctx context.Context) error {
	cfg, err := config.Load(a.flags.configFile)
	if err != nil {
		return err
	}
	if a.flags.traysFile != "" {
		cfg.TraysFile = a.flags.traysFile
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	a.cfg = cfg

	if a.logger, err = config.NewLogger(cfg.Log); err != nil {
		return err
	}
	trays, err := config.ReadTraysFile(cfg.TraysFile)
	if err != nil {
		return err
	}
	if a.store, err = core.OpenAssignmentStore(ctx, cfg.Storage); err != nil {
		return fmt.Errorf("open assignment store: %w", err)
	}
	if a.docs, err = blob.Open(ctx, cfg.Blob); err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	resolverOpts := []treatment.Option{
		treatment.WithLogger(a.logger.Named("treatment")),
		treatment.WithRegisterer(a.registry),
	}
	if cfg.CatalogFile != "" {
		if a.catalog, err = treatment.ReadCatalogFile(cfg.CatalogFile); err != nil {
			return err
		}
		resolverOpts = append(resolverOpts, treatment.WithLookup(a.catalog))
	}
	resolver, err := treatment.New(resolverOpts...)
	if err != nil {
		return err
	}

	a.svc, err = core.NewService(trays,
		core.WithLogger(core.NewZapLogger(a.logger.Named("session"))),
		core.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(a.registry)),
		core.WithAssignmentStore(a.store),
		core.WithDocumentStore(a.docs),
		core.WithResolver(resolver),
	)
	if err != nil {
		return err
	}
	_, report, err := a.svc.Load(ctx, a.flags.experiment)
	if err != nil {
		return err
	}
	if report.Migrated > 0 {
		a.logger.Info("legacy regions assigned to trays",
			zap.String("experiment", a.flags.experiment),
			zap.Int("migrated", report.Migrated))
	}
	return nil
}

func (a *app) close() {
	if a.svc != nil {
		_ = a.svc.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// save validates and persists the session; a blocking violation is returned
// as the command error and nothing is written.
func (a *app) save(cmd *cobra.Command) error {
	res, err := a.svc.Save(cmd.Context())
	for _, w := range res.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.Message)
	}
	return err
}

// persistDraft writes the current regions without validation.
func (a *app) persistDraft(ctx context.Context) error {
	snap := a.svc.Snapshot()
	return a.store.SaveAssignment(ctx, domain.Assignment{
		ExperimentID: snap.ExperimentID,
		Regions:      snap.Regions,
		UpdatedAt:    time.Now().UTC(),
	})
}

// tray resolves a tray argument given as a sequence id or a tray name.
func (a *app) tray(arg string) (domain.Tray, error) {
	if seq, err := strconv.Atoi(arg); err == nil {
		return a.svc.Tray(seq)
	}
	for _, t := range a.svc.Trays() {
		if strings.EqualFold(t.Name, strings.TrimSpace(arg)) {
			return t, nil
		}
	}
	return domain.Tray{}, fmt.Errorf("%w: %q", domain.ErrUnknownTray, arg)
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// errUsage reports invalid command input.
var errUsage = errors.New("usage")
