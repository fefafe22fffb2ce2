package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/x/term"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gm8detect/internal/gm8detect/styles"
	"gm8detect/internal/pipeline"
)

type scanOptions struct {
	Recursive bool
	Workers   int
	JSON      bool
	Color     bool
}

func scanLine(res *pipeline.Result, color bool) string {
	version, branch := "unknown", "-"
	if res.Recognised() {
		version, branch = res.Version, res.Branch
	}
	status := fmt.Sprintf("%-14s", version)
	if color {
		if res.Recognised() {
			status = styles.Recognised.Render(status)
		} else {
			status = styles.Unknown.Render(status)
		}
	}
	return fmt.Sprintf("%s %-10s %10s  %s", status, branch, humanize.IBytes(uint64(res.Size)), res.Path)
}

func runScan(ctx context.Context, w io.Writer, c *pipeline.Classifier, root string, opts scanOptions) error {
	paths, err := pipeline.Collect(root, opts.Recursive)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", root, err)
	}

	var done atomic.Int64
	results, err := c.Scan(ctx, paths, opts.Workers, func(res *pipeline.Result) {
		n := done.Add(1)
		slog.Debug("Classified", "path", res.Path, "version", res.Version, "done", n, "total", len(paths))
	})
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	recognised := 0
	for _, res := range results {
		if res.Recognised() {
			recognised++
		}
		fmt.Fprintln(w, scanLine(res, opts.Color))
	}
	fmt.Fprintf(w, "\n%d files, %d recognised\n", len(results), recognised)
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Classify every .exe in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := scanOptions{Workers: state.cfg.Workers}
		opts.Recursive, _ = cmd.Flags().GetBool("recursive")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		if cmd.Flags().Changed("workers") {
			opts.Workers, _ = cmd.Flags().GetInt("workers")
		}
		opts.Color = !opts.JSON && term.IsTerminal(os.Stdout.Fd()) && os.Getenv("GM8DETECT_NO_COLOR") == ""
		return runScan(cmd.Context(), cmd.OutOrStdout(), state.classifier, args[0], opts)
	},
}

func init() {
	scanCmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	scanCmd.Flags().IntP("workers", "w", 0, "Files classified concurrently (default from config)")
	scanCmd.Flags().Bool("json", false, "Print results as a JSON array")
	rootCmd.AddCommand(scanCmd)
}
