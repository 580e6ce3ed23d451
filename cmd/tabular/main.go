package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabular/pkg/compression"
	"github.com/ajitpratap0/tabular/pkg/config"
	"github.com/ajitpratap0/tabular/pkg/frame"
	"github.com/ajitpratap0/tabular/pkg/interchange"
	"github.com/ajitpratap0/tabular/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfgFile string
	var cfg *config.Config

	root := &cobra.Command{
		Use:   "tabular",
		Short: "Tabular - block-based columnar table engine",
		Long: `Tabular stores typed tables as consolidated per-kind blocks with
copy-on-write sharing. The CLI converts between CSV, JSON, Arrow
snapshots and the native snapshot format, and inspects block layout.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgFile != "" {
				cfg, err = config.Load(cfgFile)
			} else {
				cfg = config.Default()
				err = cfg.Validate()
			}
			if err != nil {
				return err
			}
			v := viper.New()
			v.SetEnvPrefix("TABULAR")
			v.AutomaticEnv()
			if lvl := v.GetString("LOG_LEVEL"); lvl != "" {
				cfg.Logging.Level = lvl
			}
			return logger.Init(cfg.Logging)
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tabular v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the block layout of a table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFrame(args[0], cfg)
			if err != nil {
				return err
			}
			fmt.Printf("%d rows x %d columns, %d blocks, %d bytes\n",
				f.NRows(), f.NCols(), len(f.BlockLayout()), f.MemoryUsage())
			return interchange.WriteLayoutJSON(os.Stdout, f)
		},
	}
	root.AddCommand(inspectCmd)

	var consolidate bool
	convertCmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a table between csv, json and snapshot formats",
		Long: `Convert reads the input table and writes it in the format implied by
the output file extension: .csv, .json or .snap.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFrame(args[0], cfg)
			if err != nil {
				return err
			}
			if consolidate {
				if err := f.Consolidate(); err != nil {
					return err
				}
			}
			logger.WithComponent("cli").Info("converting table",
				zap.String("in", args[0]), zap.String("out", args[1]),
				zap.Int("rows", f.NRows()), zap.Int("cols", f.NCols()))
			return saveFrame(args[1], f, cfg)
		},
	}
	convertCmd.Flags().BoolVar(&consolidate, "consolidate", true, "consolidate blocks before writing")
	root.AddCommand(convertCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync() //nolint:errcheck
		os.Exit(1)
	}
	logger.Sync() //nolint:errcheck
}

func loadFrame(path string, cfg *config.Config) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	var f *frame.Frame
	switch strings.ToLower(filepath.Ext(path)) {
	case ".snap":
		f, err = interchange.ReadSnapshot(fh)
	default:
		opts := interchange.CSVOptions{
			NoHeader:   cfg.CSV.NoHeader,
			NullTokens: cfg.CSV.NullTokens,
		}
		if cfg.CSV.Delimiter != "" {
			opts.Comma = rune(cfg.CSV.Delimiter[0])
		}
		f, err = interchange.ReadCSV(fh, opts)
	}
	if err != nil {
		return nil, err
	}
	f.SetAutoConsolidate(cfg.Storage.AutoConsolidate, cfg.Storage.ConsolidateThreshold)
	return f, nil
}

func saveFrame(path string, f *frame.Frame, cfg *config.Config) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return interchange.WriteJSON(fh, f)
	case ".snap":
		alg, err := compression.ParseAlgorithm(cfg.Storage.SnapshotCompression)
		if err != nil {
			return err
		}
		return interchange.WriteSnapshot(fh, f, alg)
	default:
		return interchange.WriteCSV(fh, f)
	}
}
