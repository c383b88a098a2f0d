package detector

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Reader loads the text of one scan target.
type Reader func(path string) (string, error)

// FileResult holds the findings for one target. Err is set when the target
// could not be read; such targets carry no findings.
type FileResult struct {
	Path     string
	Findings []Finding
	Err      error
}

// Run scans paths concurrently with at most workers goroutines. Results are
// returned in the order of paths. A read failure is recorded on its result and
// does not stop the run; only context cancellation does.
func Run(ctx context.Context, set *RuleSet, paths []string, read Reader, workers int, opts ...RunOption) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			content, err := read(path)
			if err != nil {
				results[i] = FileResult{Path: path, Err: err}
				return nil
			}
			results[i] = FileResult{Path: path, Findings: set.ScanFile(cfg.matchName(path), content)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	rename func(path string) string
}

// WithMatchName maps a path to the name used for extension-scoped rule
// selection. Results keep the original path.
func WithMatchName(rename func(path string) string) RunOption {
	return func(c *runConfig) {
		c.rename = rename
	}
}

func (c runConfig) matchName(path string) string {
	if c.rename == nil {
		return path
	}
	return c.rename(path)
}
