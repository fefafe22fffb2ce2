package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"gm8detect/internal/config"
	"gm8detect/internal/gm8detect/log"
	"gm8detect/internal/logging"
	"gm8detect/internal/pipeline"
)

// app is the state shared by every command once flags and config are read.
type app struct {
	cfg        config.Config
	logger     *logging.LoggerCloser
	classifier *pipeline.Classifier
}

var state *app

func newApp(cfg config.Config) (*app, error) {
	logger := logging.NewLogger(cfg.DataDir, cfg.LogLevel)
	table, err := pipeline.LoadTable(cfg.Descriptors)
	if err != nil {
		logger.Close()
		return nil, err
	}
	c, err := pipeline.New(table, logging.Sink{Logger: logger.Logger, Fields: []any{"component", "gamedata"}})
	if err != nil {
		logger.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, classifier: c}, nil
}

func (a *app) reportOptions() reportOptions {
	return reportOptions{
		HexdumpBytes: a.cfg.HexdumpBytes,
		DisasmCount:  a.cfg.DisasmInstructions,
	}
}

// loadConfig applies the persistent flags on top of the config file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	cfgPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	explicit := cfgPath != ""
	if !explicit {
		dir := dataDir
		if dir == "" {
			dir = config.Default().DataDir
		}
		cfgPath = config.Path(dir)
	}

	cfg, err := config.Load(cfgPath, explicit)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

var rootCmd = &cobra.Command{
	Use:   "gm8detect [file]",
	Short: "Identify GameMaker 8.x executables",
	Long: `gm8detect identifies which GameMaker 8.x release produced a Windows
executable, unpacks UPX and strips antidec protection from its game data
header, and reports where the header starts.`,
	Example: `
# Inspect a game interactively
gm8detect game.exe

# Plain report with the header bytes and the loader stub
gm8detect detect --hexdump --disasm game.exe

# Classify a whole folder
gm8detect scan -r ~/games
  `,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		debug := cfg.Debug || logging.IsDebug()
		debugLog := ""
		if debug {
			debugLog = filepath.Join(cfg.DataDir, "debug.log")
		}
		log.Setup(debugLog, debug)

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		state = a
		slog.Debug("Configuration loaded", "dataDir", cfg.DataDir, "logLevel", cfg.LogLevel, "workers", cfg.Workers, "logFile", a.logger.Path())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if state != nil {
			state.logger.Close()
		}
		log.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot access %s: %w", args[0], err)
		}

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		if !term.IsTerminal(os.Stdout.Fd()) {
			noTUI = true
		}
		if noTUI {
			os.Setenv("GM8DETECT_NO_COLOR", "1")
			if info.IsDir() {
				return runScan(cmd.Context(), cmd.OutOrStdout(), state.classifier, path, scanOptions{
					Recursive: true,
					Workers:   state.cfg.Workers,
				})
			}
			return runDetect(cmd.OutOrStdout(), state.classifier, path, state.reportOptions(), outputPlain)
		}

		program := tea.NewProgram(
			newModel(state, path, info.IsDir()),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func addPersistentFlags(c *cobra.Command) {
	c.PersistentFlags().BoolP("debug", "d", false, "Debug logging")
	c.PersistentFlags().StringP("data-dir", "D", "", "Directory for logs and the config file")
	c.PersistentFlags().StringP("config", "c", "", "Config file (default <data-dir>/"+config.FileName+")")
}

func init() {
	addPersistentFlags(rootCmd)
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print a plain report instead of the interactive view")
}

func Execute() {
	noTUI := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" {
			noTUI = true
			break
		}
	}
	if !noTUI && !term.IsTerminal(os.Stdout.Fd()) {
		noTUI = true
	}

	if noTUI {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
