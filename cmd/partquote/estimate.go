package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

var (
	estimateMaterial  string
	estimateNoAI      bool
	estimateJSON      bool
	estimateNoHistory bool
	estimateParallel  int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate [files...]",
	Short: "Estimate the machining cost of one or more part files",
	Long: `Run part files through decoding, metrics extraction and cost estimation.
Files are processed in parallel. STEP files receive surrogate metrics derived
from their name; OpenSCAD files are rendered with openscad first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringVarP(&estimateMaterial, "material", "m", "", "Material (default from config)")
	estimateCmd.Flags().BoolVar(&estimateNoAI, "no-ai", false, "Use the deterministic cost model only")
	estimateCmd.Flags().BoolVar(&estimateJSON, "json", false, "Print results as JSON")
	estimateCmd.Flags().BoolVar(&estimateNoHistory, "no-history", false, "Do not record results in the history")
	estimateCmd.Flags().IntVarP(&estimateParallel, "parallel", "p", runtime.NumCPU(), "Number of files processed at once")
}

// estimator processes single files for the estimate and watch commands
type estimator struct {
	backend  *surrogate.Backend
	advisor  pipeline.Estimator
	recorder *history.Store
	material string
}

func (e *estimator) newPipeline() *pipeline.Pipeline {
	return pipeline.New(e.backend, e.advisor,
		pipeline.WithLogger(componentLogger("pipeline")),
		pipeline.WithMaterial(e.material),
	)
}

// estimate runs one file on a pipeline of its own and records the result
func (e *estimator) estimate(ctx context.Context, path string) outcome {
	in, err := loadPart(ctx, path)
	if err != nil {
		return failedOutcome(path, err)
	}
	p := e.newPipeline()
	if err := p.Select(in); err != nil {
		return failedOutcome(path, err)
	}
	result, err := p.Start(ctx)
	if err != nil {
		return failedOutcome(path, err)
	}
	e.record(ctx, in.Name, result)
	return newOutcome(path, result.RunID, result.Metrics, result.Estimate)
}

func (e *estimator) record(ctx context.Context, fileName string, result *pipeline.Result) {
	if e.recorder == nil {
		return
	}
	entry := history.NewEntry(result.RunID, fileName, result.Metrics, result.Estimate)
	if _, err := e.recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("file", fileName).Msg("failed to record estimate")
	}
}

func newEstimator(material string, noAI, noHistory bool) *estimator {
	e := &estimator{
		backend:  surrogate.NewBackend(),
		advisor:  newAdvisor(noAI),
		material: resolveMaterial(material),
	}
	if !noHistory {
		e.recorder = openHistory()
	}
	return e
}

func (e *estimator) Close() {
	if e.recorder != nil {
		e.recorder.Close()
	}
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	est := newEstimator(estimateMaterial, estimateNoAI, estimateNoHistory)
	defer est.Close()

	outcomes, failed := estimateFiles(ctx, est, args, estimateParallel)

	if estimateJSON {
		if err := writeIndentedJSON(os.Stdout, outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			writeReport(os.Stdout, o)
		}
	}
	return failed
}

// estimateFiles processes paths with at most parallel files at once. The
// outcomes keep the order of paths; the error counts the failed files.
func estimateFiles(ctx context.Context, est *estimator, paths []string, parallel int) ([]outcome, error) {
	outcomes := make([]outcome, len(paths))
	var g errgroup.Group
	g.SetLimit(max(parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = est.estimate(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return outcomes, fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return outcomes, nil
}
