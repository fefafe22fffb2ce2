package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Collect lists the .exe files under root. Subdirectories are only entered
// when recursive is set. Unreadable entries are skipped.
func Collect(root string, recursive bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".exe") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Scan classifies paths with at most workers files in flight. Results come
// back in the order of paths. A read failure stops the scan; detection
// failures are recorded per result. onDone, when set, is called from the
// worker goroutines as each file finishes.
func (c *Classifier) Scan(ctx context.Context, paths []string, workers int, onDone func(*Result)) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.ClassifyFile(path)
			if err != nil {
				return err
			}
			// Scans keep summaries only; decrypted buffers can be large.
			res.Image, res.Entry = nil, nil
			results[i] = res
			if onDone != nil {
				onDone(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
