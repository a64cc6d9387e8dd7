package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/config"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/engine"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/quicksand"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL    string
	outputFormat string
	parallel     int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qsctl",
	Short: "QuickSand analysis CLI",
	Long: `qsctl submits documents to a QuickSand analysis API server, or runs the
configured engine locally, and prints the normalized verdict.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix("QSCTL")
		viper.AutomaticEnv()
		if serverURL == "" {
			serverURL = viper.GetString("server")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8001"
		}
		switch outputFormat {
		case formatText, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown --format %q (want text, json or yaml)", outputFormat)
		}
		if parallel < 1 {
			parallel = 1
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "analysis API base URL (env QSCTL_SERVER, default http://localhost:8001)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "output format: text, json or yaml")
	rootCmd.PersistentFlags().IntVar(&parallel, "parallel", 4, "number of files processed concurrently")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

// ── analyze ──────────────────────────────────────────────────────────────────

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file> [file] ...",
	Short: "Upload files to the analysis API and print their verdicts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.New(serverURL)
		if err != nil {
			return err
		}
		rows := processFiles(cmd.Context(), args, func(ctx context.Context, path string) (report, error) {
			f, err := os.Open(path)
			if err != nil {
				return report{}, err
			}
			defer f.Close()

			resp, err := c.Analyze(ctx, filepath.Base(path), f)
			if err != nil {
				return report{}, err
			}
			return report{
				FileSize: resp.FileSize,
				Risk:     resp.AnalysisResults.Risk,
				Score:    resp.AnalysisResults.Score,
				Tags:     resp.AnalysisResults.Tags,
				Results:  resp.AnalysisResults.Results,
			}, nil
		})
		return printReports(os.Stdout, outputFormat, rows)
	},
}

// ── scan ─────────────────────────────────────────────────────────────────────

var scanConfigFile string

var scanCmd = &cobra.Command{
	Use:   "scan <file> [file] ...",
	Short: "Run the configured engine locally and print normalized verdicts",
	Long: `scan uses the same configuration as qsapi (qsapi.yaml and QSAPI_* variables)
to build the analysis engine, then normalizes each result without a server.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(scanConfigFile)
		if err != nil {
			return err
		}
		logger := zap.NewNop()
		eng, err := engine.New(cfg.EngineFactoryConfig(), logger)
		if err != nil {
			return err
		}
		scanner := engine.NewScanner(eng, cfg.ScannerConfig(), logger)

		rows := processFiles(cmd.Context(), args, func(ctx context.Context, path string) (report, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return report{}, err
			}
			raw, err := scanner.Scan(ctx, data)
			if err != nil {
				return report{}, err
			}
			res := quicksand.Normalize(raw)
			return report{
				FileSize: len(data),
				Risk:     res.Risk,
				Score:    res.Score,
				Tags:     res.Tags,
				Results:  res.Results,
			}, nil
		})
		return printReports(os.Stdout, outputFormat, rows)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanConfigFile, "config", "", "qsapi config file used to build the engine")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the qsctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("qsctl", version)
	},
}

// processFiles runs fn for every path with at most --parallel in flight and
// returns one report per path in input order. Per-file errors are recorded
// on the report rather than aborting the batch.
func processFiles(ctx context.Context, paths []string, fn func(context.Context, string) (report, error)) []report {
	if ctx == nil {
		ctx = context.Background()
	}
	rows := make([]report, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		g.Go(func() error {
			r, err := fn(gctx, path)
			r.File = path
			if err != nil {
				r.Error = err.Error()
			}
			rows[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return rows
}
