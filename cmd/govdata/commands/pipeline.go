package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the enrichment pipeline",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline (full, single stage, or region subset)",
	Long: `Runs the enrichment pipeline.

Without flags every supported region is enriched, aggregated, and
turned into the knowledge corpus. --stage runs one stage; --regions
re-enriches a comma-separated subset and recomputes the downstream
artifacts over the merged profile set.

Examples:
  govdata pipeline run
  govdata pipeline run --stage learning
  govdata pipeline run --regions CA,TX,NY`,
	RunE: runPipeline,
}

var (
	pipelineStage   string
	pipelineRegions string
)

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)

	pipelineRunCmd.Flags().StringVar(&pipelineStage, "stage", "", "run a single stage (enrichment|aggregation|learning)")
	pipelineRunCmd.Flags().StringVar(&pipelineRegions, "regions", "", "comma-separated region codes for an incremental run")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if pipelineStage != "" && pipelineRegions != "" {
		return fmt.Errorf("--stage and --regions are mutually exclusive")
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch {
	case pipelineStage != "":
		_, runErr = application.orchestrator.RunStage(ctx, pipelineStage)
	case pipelineRegions != "":
		codes := strings.Split(pipelineRegions, ",")
		for i := range codes {
			codes[i] = strings.ToUpper(strings.TrimSpace(codes[i]))
		}
		_, runErr = application.orchestrator.RunIncremental(ctx, codes)
	default:
		_, runErr = application.orchestrator.RunFull(ctx)
	}
	return runErr
}
