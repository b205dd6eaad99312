package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"webharness-go/application/pages"
	"webharness-go/application/runner"
	"webharness-go/core/event"
	"webharness-go/core/eventbus"
	"webharness-go/domain/flow"
	"webharness-go/domain/run"
	"webharness-go/infrastructure/config"
	"webharness-go/infrastructure/logging"
	"webharness-go/infrastructure/repository"
	"webharness-go/resources"
)

// errFlowsFailed is returned by run when at least one flow failed.
var errFlowsFailed = errors.New("one or more flows failed")

// app carries state shared by the subcommands.
type app struct {
	cfgFile  string
	params   *config.Parameters
	logger   *slog.Logger
	closeLog func() error

	// setupLogging installs the process logger; nil means logging.Setup.
	setupLogging func(*logging.Config) (*slog.Logger, func() error, error)
}

// execute runs the command line in args and then closes the process log,
// whether or not the command failed.
func execute(ctx context.Context, a *app, args []string, out io.Writer) error {
	cmd := a.rootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.shutdown())
}

// shutdown closes the process log. Calling it again is a no-op.
func (a *app) shutdown() error {
	if a.closeLog == nil {
		return nil
	}
	closeLog := a.closeLog
	a.closeLog = nil
	return closeLog()
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "harness",
		Short:         "Run browser UI flows against the application under test",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML); HARNESS_* environment variables override it")

	root.AddCommand(
		newRunCmd(a),
		newFlowsCmd(a),
		newPagesCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// init loads parameters and sets up the process logger.
func (a *app) init() error {
	params, err := config.Load(config.NewViper(), a.cfgFile)
	if err != nil {
		return err
	}
	a.params = params

	level, err := logging.ParseLevel(params.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(params.LogFormat)
	if err != nil {
		return err
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = format

	setup := a.setupLogging
	if setup == nil {
		setup = logging.Setup
	}
	logger, closeLog, err := setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

// loadFlows returns the shipped flows plus the flow files named in extra,
// and the names of the flows loaded from those files.
func loadFlows(extra []string) (*flow.Registry, []string, error) {
	reg := flow.NewRegistry()
	loader := flow.NewLoader(reg)
	if err := loader.LoadFromFS(resources.Files); err != nil {
		return nil, nil, err
	}
	var fromFiles []string
	for _, path := range extra {
		f, err := loader.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		fromFiles = append(fromFiles, f.Name)
	}
	return reg, fromFiles, nil
}

// openHistory picks MongoDB when MongoURI is set, SQLite when HistoryPath
// is set, and no store otherwise.
func (a *app) openHistory(ctx context.Context) (*run.History, func(), error) {
	switch {
	case a.params.MongoURI != "":
		cfg := repository.DefaultMongoDBConfig()
		cfg.URI = a.params.MongoURI
		if a.params.MongoDatabase != "" {
			cfg.Database = a.params.MongoDatabase
		}
		db, err := repository.NewMongoDB(ctx, cfg, a.logger)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := db.Close(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn("Failed to close MongoDB", "error", err)
			}
		}
		return run.NewHistory(repository.NewMongoRunRepository(db, a.logger)), closer, nil

	case a.params.HistoryPath != "":
		repo, err := repository.NewSQLiteRunRepository(a.params.HistoryPath, a.logger)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := repo.Close(); err != nil {
				a.logger.Warn("Failed to close history database", "error", err)
			}
		}
		return run.NewHistory(repo), closer, nil

	default:
		return run.NewHistory(nil), func() {}, nil
	}
}

func newRunCmd(a *app) *cobra.Command {
	var (
		parallel int
		headless bool
		tag      string
		files    []string
	)

	cmd := &cobra.Command{
		Use:   "run [flow...]",
		Short: "Run flows by name, by tag, or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			flows, fromFiles, err := loadFlows(files)
			if err != nil {
				return err
			}
			selected, err := selectFlows(flows, args, tag, fromFiles)
			if err != nil {
				return err
			}

			catalog, err := pages.LoadCatalog()
			if err != nil {
				return err
			}

			history, closeHistory, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeHistory()

			bus := eventbus.New(256, a.logger)
			defer bus.Close()
			bus.Subscribe(progressPrinter(cmd))

			var headlessOverride *bool
			if cmd.Flags().Changed("headless") {
				headlessOverride = &headless
			}
			if !cmd.Flags().Changed("parallel") {
				parallel = a.params.Parallel
			}

			suite := runner.NewSuite(&runner.SuiteConfig{
				Runner: runner.NewFlowRunner(&runner.Config{
					Params:   a.params,
					Catalog:  catalog,
					EventBus: bus,
					Headless: headlessOverride,
					Logger:   a.logger,
				}),
				History:           history,
				Parallel:          parallel,
				LaunchesPerSecond: a.params.LaunchesPerSecond,
				Logger:            a.logger,
			})

			records, runErr := suite.Run(ctx, selected)
			bus.Close()
			printSummary(cmd, records)

			if a.params.MetricsPath != "" {
				if err := runner.WriteMetrics(a.params.MetricsPath); err != nil {
					a.logger.Warn("Failed to write metrics", "error", err)
				}
			}

			if runErr != nil {
				return runErr
			}
			if !run.Summarize(records).Passed() {
				return errFlowsFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "flows to run at once (default from the Parallel parameter)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless (default from the Headless parameter)")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "run only flows with this tag")
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "additional flow files to load")
	return cmd
}

// selectFlows resolves names and tag against reg. With neither, the flows
// named in fromFiles are selected if any, otherwise every flow.
func selectFlows(reg *flow.Registry, names []string, tag string, fromFiles []string) ([]*flow.Flow, error) {
	var out []*flow.Flow
	seen := make(map[string]bool)
	add := func(f *flow.Flow) {
		if !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f)
		}
	}

	for _, name := range names {
		f := reg.Get(name)
		if f == nil {
			return nil, fmt.Errorf("unknown flow %q (known: %s)", name, strings.Join(reg.List(), ", "))
		}
		add(f)
	}
	if tag != "" {
		tagged := reg.Tagged(tag)
		if len(tagged) == 0 {
			return nil, fmt.Errorf("no flow is tagged %q", tag)
		}
		for _, f := range tagged {
			add(f)
		}
	}
	if len(names) == 0 && tag == "" {
		defaults := fromFiles
		if len(defaults) == 0 {
			defaults = reg.List()
		}
		for _, name := range defaults {
			add(reg.Get(name))
		}
	}
	return out, nil
}

func progressPrinter(cmd *cobra.Command) eventbus.EventHandler {
	out := cmd.OutOrStdout()
	return func(e event.Event) {
		switch evt := e.(type) {
		case *event.FlowStarted:
			fmt.Fprintf(out, "RUN   %s (%s)\n", evt.Flow, evt.SessionID())
		case *event.InteractionFailed:
			fmt.Fprintf(out, "      %s %s: %s\n", evt.Op, evt.Selector, evt.Kind)
		case *event.FlowFinished:
			fmt.Fprintf(out, "%-5s %s (%s)\n", outcomeTag(evt.Outcome), evt.Flow, evt.Duration.Round(time.Millisecond))
		}
	}
}

func outcomeTag(outcome string) string {
	switch run.ParseOutcome(outcome) {
	case run.Success:
		return "PASS"
	case run.Failure:
		return "FAIL"
	default:
		return "SKIP"
	}
}

func printSummary(cmd *cobra.Command, records []*run.Record) {
	out := cmd.OutOrStdout()
	s := run.Summarize(records)
	fmt.Fprintf(out, "\n%d flows: %d passed, %d failed, %d inconclusive\n", s.Total, s.Success, s.Failure, s.Inconclusive)
	for _, rec := range records {
		for _, f := range rec.Failures() {
			fmt.Fprintf(out, "  %s: %s\n", rec.Flow, f.Message)
		}
		for _, path := range rec.Attachments {
			if rec.Outcome == run.Failure {
				fmt.Fprintf(out, "    attachment: %s\n", path)
			}
		}
	}
}

func newFlowsCmd(a *app) *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "List available flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := loadFlows(files)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tUI\tSTEPS\tTAGS\tDESCRIPTION")
			for _, name := range reg.List() {
				f := reg.Get(name)
				fmt.Fprintf(w, "%s\t%t\t%d\t%s\t%s\n", f.Name, f.UI, len(f.Steps), strings.Join(f.Tags, ","), f.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "additional flow files to load")
	return cmd
}

func newPagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pages [page]",
		Short: "List page catalogs, or the elements of one page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := pages.LoadCatalog()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if len(args) == 1 {
				p := reg.Get(args[0])
				if p == nil {
					return fmt.Errorf("unknown page %q (known: %s)", args[0], strings.Join(reg.List(), ", "))
				}
				fmt.Fprintln(w, "ELEMENT\tSELECTOR")
				for _, name := range p.ElementNames() {
					fmt.Fprintf(w, "%s.%s\t%s\n", p.Name, name, p.Elements[name])
				}
				return w.Flush()
			}

			fmt.Fprintln(w, "PAGE\tPATH\tELEMENTS\tDESCRIPTION")
			for _, name := range reg.List() {
				p := reg.Get(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Name, p.Path, len(p.Elements), p.Description)
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent flow runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, closeHistory, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeHistory()

			records, err := history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFLOW\tOUTCOME\tSTARTED\tDURATION\tLOG")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					rec.ID, rec.Flow, rec.Outcome, rec.Started.Format(time.DateTime),
					rec.Duration().Round(time.Millisecond), logFile(rec))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func logFile(rec *run.Record) string {
	for _, path := range rec.Attachments {
		if filepath.Ext(path) == ".txt" {
			return path
		}
	}
	if rec.LoggerID != "" {
		return rec.LoggerID + ".txt"
	}
	return "-"
}
