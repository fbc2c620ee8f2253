package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"toolbox/cmd/toolbox/ui"
	"toolbox/internal/config"
	"toolbox/internal/logging"
	"toolbox/internal/paths"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger

	// Standard streams; tests swap them.
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// app is built in PersistentPreRunE and shared by every command.
	app *App
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "toolbox",
	Short: "Toolbox - package manager for Raven software",
	Long: `Toolbox installs, updates and removes Raven applications.

Packages come from a JSON package list that is downloaded on first use and
refreshed with 'toolbox update'. Every download is verified against the
SHA-256 digest published in the list before it is installed.

Run without arguments to start the interactive shell.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		layout := paths.Resolve(cfg.Paths.Root)
		if err := logging.Initialize(layout.LogsDir, cfg.Logging); err != nil {
			logger.Warn("category logging disabled", zap.Error(err))
		}
		logging.SetConsole(logger)
		logging.Boot("toolbox %s starting: root=%s platform=%s", version, layout.Root, paths.PlatformName())

		styles := ui.DefaultStyles()
		console := ui.NewConsole(stdout, styles)
		app, err = newApp(cfg, console, newPrompter(styles))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
	RunE: runShell,
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = paths.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Network.Timeout = timeout.String()
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logger.Debug("config loaded", zap.String("path", path), zap.String("index", cfg.Index.URL))
	return cfg, nil
}

func newPrompter(styles ui.Styles) ui.Prompter {
	if f, ok := stdin.(*os.File); ok {
		return ui.NewPrompter(f, stdout, styles)
	}
	return ui.NewLinePrompter(stdin, stdout)
}

// shutdown releases the app, flushes the logger and closes log files. Safe to
// call more than once.
func shutdown() {
	if app != nil {
		app.Close()
		app = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
	logging.CloseAll()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/.toolbox/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Download timeout")

	installCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	uninstallCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	listCmd.Flags().Bool("available", false, "Only list packages installable on this platform")
	historyCmd.Flags().Int("limit", 20, "Maximum number of entries (0 = all)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(installedCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintln(stderr, ui.DefaultStyles().Error.Render("Error: "+userMessage(err)))
		os.Exit(1)
	}
}

// joinArgs joins command line arguments with spaces.
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
