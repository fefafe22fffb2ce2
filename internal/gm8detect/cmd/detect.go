package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"gm8detect/internal/pipeline"
)

type outputMode int

const (
	outputPlain outputMode = iota // raw markdown
	outputRendered
	outputJSON
)

// runDetect classifies one file and writes the report. An unrecognised file
// is reported and then returned as an error.
func runDetect(w io.Writer, c *pipeline.Classifier, path string, opts reportOptions, mode outputMode) error {
	res, err := c.ClassifyFile(path)
	if err != nil {
		return err
	}

	switch mode {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	case outputRendered:
		width, _, err := term.GetSize(os.Stdout.Fd())
		if err != nil || width <= 0 {
			width = 80
		}
		fmt.Fprintln(w, renderMarkdown(buildReport(res, opts), width-2))
	default:
		fmt.Fprint(w, buildReport(res, opts))
	}

	if !res.Recognised() {
		return fmt.Errorf("%s: %w", path, res.Err)
	}
	return nil
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Classify one executable and print a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		opts := state.reportOptions()
		opts.Hexdump, _ = cmd.Flags().GetBool("hexdump")
		opts.Disasm, _ = cmd.Flags().GetBool("disasm")

		mode := outputPlain
		switch {
		case asJSON:
			mode = outputJSON
		case term.IsTerminal(os.Stdout.Fd()):
			mode = outputRendered
		}
		return runDetect(cmd.OutOrStdout(), state.classifier, args[0], opts, mode)
	},
}

func init() {
	detectCmd.Flags().Bool("json", false, "Print the result as JSON")
	detectCmd.Flags().Bool("hexdump", false, "Show the first bytes of the game data header")
	detectCmd.Flags().Bool("disasm", false, "Disassemble the matched antidec loader stub")
	rootCmd.AddCommand(detectCmd)
}
