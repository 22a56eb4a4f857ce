package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/statloom-cli/internal/config"
	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
	"github.com/KaramelBytes/statloom-cli/internal/report"
	"github.com/KaramelBytes/statloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	expDeps         []string
	expFactors      []string
	expLabel        string
	expWeight       string
	expMetadata     string
	expCI           float64
	expExtremes     int
	expDescriptives bool
	expMEstimators  bool
	expOutliers     bool
	expPercentiles  bool
	expFormat       string
	expOutputPath   string
	expDelimiter    string
	expDecimal      string
	expThousands    string
	expMaxRows      int
	expSheetName    string
	expSheetIndex   int
)

var exploreCmd = &cobra.Command{
	Use:   "explore <file>",
	Short: "Explore numeric variables of a CSV/TSV/XLSX, optionally split by factors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := effectiveConfig()
		format := c.OutputFormat
		if cmd.Flags().Changed("format") {
			format = expFormat
		}
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		if f == report.FormatXLSX && expOutputPath == "" {
			return fmt.Errorf("--format xlsx requires --output")
		}

		opt, err := datasetOptions()
		if err != nil {
			return err
		}
		ds, err := loadDataset(args[0], opt)
		if err != nil {
			return err
		}
		for _, w := range ds.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}

		p, err := exploreParams(cmd, ds, c)
		if err != nil {
			return err
		}

		log, err := newLogger(c)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		svc, err := newService(c, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		runner := explore.NewRunner(svc, c.Workers, time.Duration(c.TaskTimeoutSec)*time.Second, log.Named("explore"))
		out, err := runner.Run(ctx, ds, p)
		if err != nil {
			var empty *explore.EmptyResultError
			if errors.As(err, &empty) {
				log.Debug("run produced no results", zap.Int("failures", len(empty.Failures)))
			}
			return err
		}
		if w := out.Warning(); w != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}

		tables, err := report.Build(out.Aggregated, p)
		if err != nil {
			return err
		}
		doc := report.Document{
			RunID:   out.RunID.String(),
			Source:  filepath.Base(args[0]),
			Warning: out.Warning(),
			Tables:  tables,
		}
		var buf bytes.Buffer
		if err := report.Render(&buf, doc, f); err != nil {
			return err
		}
		if expOutputPath != "" {
			if err := utils.SafeWriteFile(expOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d tables to %s\n", len(tables), expOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}

func datasetOptions() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	if expMaxRows >= 0 {
		opt.MaxRows = expMaxRows
	}
	switch expDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", expDelimiter)
	}
	switch strings.ToLower(strings.TrimSpace(expDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", expDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(expThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", expThousands)
	}
	return opt, nil
}

// loadDataset reads the file and applies the --metadata overrides.
func loadDataset(path string, opt dataset.Options) (*dataset.Dataset, error) {
	ds, err := dataset.Load(path, opt, expSheetName, expSheetIndex)
	if err != nil {
		return nil, err
	}
	if expMetadata != "" {
		md, err := dataset.LoadMetadata(expMetadata)
		if err != nil {
			return nil, err
		}
		if err := md.Apply(ds, opt); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func exploreParams(cmd *cobra.Command, ds *dataset.Dataset, conf *cfgpkg.Global) (explore.Params, error) {
	var p explore.Params
	for _, name := range expDeps {
		v, err := ds.MustLookup(name)
		if err != nil {
			return p, err
		}
		p.Dependents = append(p.Dependents, v)
	}
	for _, name := range expFactors {
		v, err := ds.MustLookup(name)
		if err != nil {
			return p, err
		}
		p.Factors = append(p.Factors, &v)
	}
	if expLabel != "" {
		v, err := ds.MustLookup(expLabel)
		if err != nil {
			return p, err
		}
		p.Label = &v
	}
	if expWeight != "" {
		v, err := ds.MustLookup(expWeight)
		if err != nil {
			return p, err
		}
		p.Weight = &v
	}
	p.ConfidenceLevel = conf.ConfidenceLevel
	if cmd.Flags().Changed("ci") {
		p.ConfidenceLevel = expCI
	}
	p.ExtremeCount = conf.ExtremeCount
	if cmd.Flags().Changed("extremes") {
		p.ExtremeCount = expExtremes
	}
	p.ShowDescriptives = expDescriptives
	p.ShowMEstimators = expMEstimators
	p.ShowOutliers = expOutliers
	p.ShowPercentiles = expPercentiles
	return p, nil
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	fl := exploreCmd.Flags()
	fl.StringArrayVarP(&expDeps, "dep", "d", nil, "dependent variable (repeatable)")
	fl.StringArrayVarP(&expFactors, "factor", "f", nil, "factor variable to split by (repeatable)")
	fl.StringVar(&expLabel, "label", "", "variable used to label cases")
	fl.StringVar(&expWeight, "weight", "", "frequency weight variable")
	fl.StringVar(&expMetadata, "metadata", "", "YAML file overriding variable labels, types and value labels")
	fl.Float64Var(&expCI, "ci", 95, "confidence level for the mean interval, in percent")
	fl.IntVar(&expExtremes, "extremes", 5, "number of highest and lowest cases to list")
	fl.BoolVar(&expDescriptives, "descriptives", true, "emit the Descriptives table")
	fl.BoolVar(&expMEstimators, "mestimators", false, "emit the M-Estimators table")
	fl.BoolVar(&expOutliers, "outliers", false, "emit the Extreme Values table")
	fl.BoolVar(&expPercentiles, "percentiles", false, "emit the Percentiles table")
	fl.StringVar(&expFormat, "format", "text", "output format: text | markdown | json | xlsx")
	fl.StringVarP(&expOutputPath, "output", "o", "", "write output to a file instead of stdout")
	fl.StringVar(&expDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	fl.StringVar(&expDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fl.StringVar(&expThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fl.IntVar(&expMaxRows, "max-rows", 1000000, "maximum rows to load (0 = unlimited)")
	fl.StringVar(&expSheetName, "sheet-name", "", "XLSX: sheet name to read")
	fl.IntVar(&expSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	_ = exploreCmd.MarkFlagRequired("dep")
}
