package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/analyses"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/config"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/ai/provider"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/dataset"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/export"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

type runOptions struct {
	configPath   string
	analysis     string
	media        string
	input        string
	sheet        string
	out          string
	textColumn   string
	brandColumn  string
	weightColumn string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "annotate",
		Short:         "Annotate marketing datasets with an LLM and write result workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(nil), newKindsCmd())
	return root
}

// newRunCmd builds the run command. A nil client means the provider is
// built from the configuration.
func newRunCmd(client ai.Client) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run one analysis over a local dataset",
		Example: "  annotate run --analysis creativity --media social_media --input posts.xlsx --out creativity.xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnalysis(ctx, opts, client, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "config file")
	f.StringVarP(&opts.analysis, "analysis", "a", "", "analysis kind (see `annotate kinds`)")
	f.StringVarP(&opts.media, "media", "m", "", "media type: ads, social_media or pr")
	f.StringVarP(&opts.input, "input", "i", "", "input .xlsx or .csv")
	f.StringVar(&opts.sheet, "sheet", "", "input sheet, defaults to the first")
	f.StringVarP(&opts.out, "out", "o", "", "output .xlsx or .json, defaults to <input>_<analysis>.xlsx")
	f.StringVar(&opts.textColumn, "text-column", "", "override the media's text column")
	f.StringVar(&opts.brandColumn, "brand-column", "", "override the media's brand column")
	f.StringVar(&opts.weightColumn, "weight-column", "", "override the media's weight column")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("analysis")
	_ = cmd.MarkFlagRequired("media")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the available analyses",
		Run: func(cmd *cobra.Command, _ []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Analysis", "Unit", "Output"})
			for _, k := range annotation.Kinds {
				d := kindDocs[k]
				t.AppendRow(table.Row{k, d[0], d[1]})
			}
			t.Render()
		},
	}
}

var kindDocs = map[annotation.Kind][2]string{
	annotation.KindArchetype:     {"item (ads) or brand", "dominant brand archetype"},
	annotation.KindCreativity:    {"brand", "top-K original items + cross-brand ranking"},
	annotation.KindKeyAdvantages: {"brand", "advantages with evidence and examples"},
	annotation.KindPillars:       {"brand", "content themes + genericity comparison"},
	annotation.KindAffinity:      {"brand x persona", "top-box persona scores"},
}

func runAnalysis(ctx context.Context, opts runOptions, client ai.Client, out io.Writer) error {
	kind, err := annotation.ParseKind(opts.analysis)
	if err != nil {
		return err
	}
	media, err := annotation.ParseMedia(opts.media)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if client == nil {
		client, err = provider.New(ctx, cfg.LLM, cfg.APIKey())
		if err != nil {
			return err
		}
	}

	data, err := dataset.NewReader().Read(ctx, opts.input, opts.sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.input, err)
	}
	cols := cfg.Columns(media)
	if opts.textColumn != "" {
		cols.Text = opts.textColumn
	}
	if opts.brandColumn != "" {
		cols.Brand = opts.brandColumn
	}
	if opts.weightColumn != "" {
		cols.Weight = opts.weightColumn
	}

	runner := &analyses.Runner{Client: client, Settings: cfg.Settings(), Log: log}
	res, err := runner.Run(ctx, analyses.Request{Kind: kind, Media: media, Columns: cols, Table: data})
	if err != nil {
		return err
	}

	path := opts.out
	if path == "" {
		path = defaultOut(opts.input, kind)
	}
	if err := export.NewWriter().Write(path, res.Workbook); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	renderManifest(out, res.Workbook.Manifest, len(res.Failures))
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func defaultOut(input string, kind annotation.Kind) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return fmt.Sprintf("%s_%s.xlsx", base, kind)
}

func renderManifest(out io.Writer, m annotation.Manifest, failures int) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Status", "Count"})
	for _, s := range m.Statuses() {
		t.AppendRow(table.Row{s, m.ByStatus[s]})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"total", m.Total})
	t.AppendFooter(table.Row{"failures recorded", failures})
	t.Render()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
