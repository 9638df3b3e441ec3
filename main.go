package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wildstyl3r/quench/internal/config"
	"github.com/wildstyl3r/quench/internal/model"
	"github.com/wildstyl3r/quench/internal/utils"
)

var (
	configFileName string
	inputFileName  string
	outputDir      string
	modelName      string
	threads        int
	verbose        bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "quench",
	Short:         "Electron-ion recombination for liquid argon TPC track segments",
	Long:          "Computes the ionization electrons and scintillation photons surviving recombination\nfor every track segment of the input file, using the Box, Birks or data-driven model.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

var newLogger = func(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func init() {
	rootCmd.Flags().StringVarP(&configFileName, "config", "c", "quench.toml", "model configuration in toml or yaml format")
	rootCmd.Flags().StringVarP(&inputFileName, "input", "i", "", "track segments: rows of \"dEdx dE x y z [pixel_plane]\"")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides OutputDir)")
	rootCmd.Flags().StringVarP(&modelName, "model", "m", "", "recombination model: box, birks or data (overrides Model)")
	rootCmd.Flags().IntVarP(&threads, "threads", "t", 0, "worker goroutines (overrides Threads)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	_ = rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	runID := uuid.NewString()
	log := logger.With(zap.String("run", runID))

	cfg, err := config.LoadConfig(configFileName)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = modelName
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = outputDir
	}
	kind, err := model.ParseKind(cfg.Model)
	if err != nil {
		return err
	}

	parameters := cfg.Parameters()
	if threads > 0 {
		parameters.SetThreads(threads)
	}

	segments, err := model.ReadSegmentsFile(inputFileName, parameters)
	if err != nil {
		return err
	}
	log.Info("segments loaded",
		zap.String("input", inputFileName),
		zap.Int("segments", len(segments)),
		zap.Stringer("model", kind),
		zap.Strings("units", parameters.InputUnits()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m := model.NewModel(parameters, log)
	if err := m.Quench(ctx, segments, kind); err != nil {
		return err
	}

	name := utils.GetFilename(inputFileName) + "_" + runID[:8]
	if err := model.SaveSegments(cfg.OutputDir, name, segments); err != nil {
		return fmt.Errorf("unable to save segments: %w", err)
	}
	extractor := model.NewDataExtractor(&m, segments, kind)
	if err := extractor.Save(cfg.OutputDir, name+"_summary"); err != nil {
		return fmt.Errorf("unable to save summary: %w", err)
	}

	mean, halfWidth := extractor.Survival()
	log.Info("segments quenched",
		zap.String("output", name),
		zap.Float64("electrons", extractor.TotalElectrons),
		zap.Float64("photons", extractor.TotalPhotons),
		zap.Float64("survival", mean),
		zap.Float64("survival_conf_interval", halfWidth))
	fmt.Fprintf(cmd.OutOrStdout(), "Elapsed time: %v\n", time.Since(startTime))
	return nil
}
