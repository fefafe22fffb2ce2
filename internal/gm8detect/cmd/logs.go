package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"gm8detect/internal/logging"
)

// runLogs prints the newest log file in dir, and keeps printing appended
// lines until ctx ends when follow is set.
func runLogs(ctx context.Context, w io.Writer, dir string, follow bool) error {
	path, err := logging.LatestFile(dir)
	if err != nil {
		return err
	}

	if !follow {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(w, line.Text)
		}
	}
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the newest log file",
	Long: `Print the newest log file in the data directory. Log files are written
when GM8DETECT_LOG_TO_FILE=1 is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		return runLogs(cmd.Context(), cmd.OutOrStdout(), state.cfg.DataDir, follow)
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Keep printing lines as they are written")
	rootCmd.AddCommand(logsCmd)
}
