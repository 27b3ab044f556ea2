package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/cobra"

	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/openscad"
	"github.com/philipparndt/partquote/pkg/watcher"
)

var (
	watchMaterial  string
	watchNoAI      bool
	watchNoHistory bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [files or directories...]",
	Short: "Re-estimate part files whenever they change",
	Long: `Watch part files and directories and print a new estimate every time a
file is written. OpenSCAD files are re-rendered when any file they use or
include changes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchMaterial, "material", "m", "", "Material (default from config)")
	watchCmd.Flags().BoolVar(&watchNoAI, "no-ai", false, "Use the deterministic cost model only")
	watchCmd.Flags().BoolVar(&watchNoHistory, "no-history", false, "Do not record results in the history")
}

func isPartFile(path string) bool {
	return isSCAD(path) || pipeline.DetectFormat(path) != pipeline.FormatUnknown
}

// scadOwners maps every file the given OpenSCAD files reach through use and
// include to the OpenSCAD files that have to be rendered when it changes.
// Each OpenSCAD file owns itself. watched lists every such file once.
func scadOwners(paths []string) (owners map[string][]string, watched []string, err error) {
	owners = make(map[string][]string)
	for _, path := range paths {
		if !isSCAD(path) {
			continue
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		deps, err := openscad.NewRenderer(filepath.Dir(absPath)).ResolveDependencies(absPath)
		if err != nil {
			return nil, nil, err
		}
		for _, dep := range deps {
			if _, seen := owners[dep]; !seen {
				watched = append(watched, dep)
			}
			if !slices.Contains(owners[dep], absPath) {
				owners[dep] = append(owners[dep], absPath)
			}
		}
	}
	return owners, watched, nil
}

// watchSession re-estimates changed files. Every target file has one
// pipeline, so a newer change supersedes a run still in flight, and only
// the newest change of a file is printed and recorded.
type watchSession struct {
	est    *estimator
	owners map[string][]string
	out    io.Writer

	mu        sync.Mutex
	pipelines map[string]*pipeline.Pipeline
	latest    map[string]int
	reported  map[string]int
}

func newWatchSession(est *estimator, owners map[string][]string, out io.Writer) *watchSession {
	return &watchSession{
		est:       est,
		owners:    owners,
		out:       out,
		pipelines: make(map[string]*pipeline.Pipeline),
		latest:    make(map[string]int),
		reported:  make(map[string]int),
	}
}

// changed processes every file that depends on path
func (s *watchSession) changed(ctx context.Context, path string) {
	targets := s.owners[path]
	if len(targets) == 0 {
		targets = []string{path}
	}
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.process(ctx, target)
		}()
	}
	wg.Wait()
}

func (s *watchSession) process(ctx context.Context, path string) {
	s.mu.Lock()
	s.latest[path]++
	seq := s.latest[path]
	p, ok := s.pipelines[path]
	if !ok {
		p = s.est.newPipeline()
		s.pipelines[path] = p
	}
	s.mu.Unlock()

	in, err := loadPart(ctx, path)
	if err != nil {
		s.report(ctx, path, seq, failedOutcome(path, err), nil)
		return
	}

	s.mu.Lock()
	if seq != s.latest[path] {
		s.mu.Unlock()
		return
	}
	err = p.Select(in)
	s.mu.Unlock()
	if err != nil {
		s.report(ctx, path, seq, failedOutcome(path, err), nil)
		return
	}

	result, err := p.Start(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunSuperseded):
		logger.Debug().Str("file", path).Msg("stale estimate discarded")
	case err != nil:
		s.report(ctx, path, seq, failedOutcome(path, err), nil)
	default:
		s.report(ctx, path, seq, newOutcome(path, result.RunID, result.Metrics, result.Estimate), func() {
			s.est.record(ctx, in.Name, result)
		})
	}
}

// report prints o unless a newer change of path was seen since seq
func (s *watchSession) report(ctx context.Context, path string, seq int, o outcome, record func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.latest[path] || seq <= s.reported[path] || ctx.Err() != nil {
		return
	}
	s.reported[path] = seq
	if record != nil {
		record()
	}
	writeReport(s.out, o)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	est := newEstimator(watchMaterial, watchNoAI, watchNoHistory)
	defer est.Close()

	owners, scadDeps, err := scadOwners(args)
	if err != nil {
		return err
	}
	session := newWatchSession(est, owners, os.Stdout)

	w, err := watcher.New(func(path string) { session.changed(ctx, path) },
		watcher.WithFilter(isPartFile),
		watcher.WithLogger(componentLogger("watcher")),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(args...); err != nil {
		return err
	}
	if err := w.Add(scadDeps...); err != nil {
		return err
	}

	logger.Info().Int("paths", len(args)).Int("dependencies", len(scadDeps)).Msg("watching for changes")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop.")

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
