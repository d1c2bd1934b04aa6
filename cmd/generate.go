package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hmorsi/coursewright/internal/curriculum"
	"github.com/hmorsi/coursewright/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a curriculum from a programme input file",
	Long: `Runs the full generation pipeline for the given programme input and
writes the assembled curriculum to the output file. An interrupted run can
be re-run with --job to resume from the last committed stage.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("input", "program.yml", "programme input file (YAML)")
	generateCmd.Flags().String("output", "curriculum.json", "output file for the generated curriculum")
	generateCmd.Flags().String("job", "", "existing job id to resume")
	generateCmd.Flags().Int("concurrency", 0, "max parallel generations (overrides config)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()

	// Cancellation takes effect at the next stage boundary; committed stages
	// survive for resume.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Generating curriculum"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
	sink := pipeline.SinkFunc(func(e pipeline.Event) {
		bar.Describe(string(e.Stage))
		_ = bar.Set(e.Progress)
	})

	orch, store, err := buildPipeline(ctx, cfg, log, pipeline.WithSink(sink))
	if err != nil {
		return err
	}
	defer store.Close()

	jobID, _ := cmd.Flags().GetString("job")
	if jobID == "" {
		inputPath, _ := cmd.Flags().GetString("input")
		input, err := curriculum.LoadProgramInput(inputPath)
		if err != nil {
			return fmt.Errorf("loading programme input: %w", err)
		}
		jobID, err = orch.StartJob(ctx, *input)
		if err != nil {
			return err
		}
		if verbose {
			warnf("Started job %s", jobID)
		}
	}

	if err := orch.Run(ctx, jobID); err != nil {
		return fmt.Errorf("generation failed (resume with --job %s): %w", jobID, err)
	}
	_ = bar.Finish()

	result, err := store.GetResult(ctx, jobID)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	var pretty json.RawMessage = result
	data, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		data = result
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing curriculum: %w", err)
	}

	fmt.Printf("Curriculum written to %s in %s\n", outputPath, time.Since(start).Round(time.Second))
	return nil
}
