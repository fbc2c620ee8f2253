package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"toolbox/cmd/toolbox/ui"
	"toolbox/internal/installer"
	"toolbox/internal/paths"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		available, _ := cmd.Flags().GetBool("available")
		ctx, stop := commandContext(cmd)
		defer stop()
		return app.list(ctx, available)
	},
}

var installCmd = &cobra.Command{
	Use:   "install <package|*>",
	Short: "Install the specified package",
	Long: `Downloads the package for this platform, verifies its SHA-256 digest and
installs it. Use '*' to install every package in the list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		ctx, stop := commandContext(cmd)
		defer stop()
		return app.installer.Install(ctx, args[0], installer.Options{Yes: yes})
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Uninstall the specified package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		ctx, stop := commandContext(cmd)
		defer stop()
		return app.installer.Uninstall(ctx, args[0], installer.Options{Yes: yes})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the package list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext(cmd)
		defer stop()
		return app.installer.Update(ctx)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <package>",
	Short: "Show details of a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := commandContext(cmd)
		defer stop()
		return app.show(ctx, args[0])
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [package]",
	Short: "Show install history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		pkg := ""
		if len(args) == 1 {
			pkg = args[0]
		}
		return app.showHistory(cmd.Context(), pkg, limit)
	},
}

var installedCmd = &cobra.Command{
	Use:   "installed",
	Short: "List installed packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.showInstalled()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the Toolbox version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.console.Println(fmt.Sprintf("toolbox %s (%s)", version, paths.PlatformName()))
		return nil
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell (default)",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

// commandContext returns the command's context, cancelled on Ctrl+C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (a *App) list(ctx context.Context, availableOnly bool) error {
	idx, err := a.cache.Get(ctx)
	if err != nil {
		return err
	}
	pkgs := idx.Packages
	if availableOnly {
		pkgs = idx.Available(a.installer.Platform())
	}
	a.console.Print(a.console.Styles().RenderPackages(pkgs))
	return nil
}

func (a *App) show(ctx context.Context, name string) error {
	idx, err := a.cache.Get(ctx)
	if err != nil {
		return err
	}
	pkg, err := idx.Find(name)
	if err != nil {
		return &installer.PackageError{Package: name, Err: err}
	}

	md := ui.PackageMarkdown(pkg, a.installer.Platform(), a.installedEntry(pkg.Name, name))
	out, err := ui.RenderMarkdown(md, a.console.Styles().Theme, ui.IsTerminal(a.console.Writer()), 80)
	if err != nil {
		// Fall back to the raw markdown.
		out = md
	}
	a.console.Print(out)
	return nil
}

func (a *App) showHistory(ctx context.Context, pkg string, limit int) error {
	if a.history == nil {
		return errors.New("install history is disabled (install.history in config.yaml)")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := a.history.List(ctx, pkg, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.console.PrintInfo("No history yet.")
		return nil
	}
	a.console.Print(a.console.Styles().RenderHistory(entries))
	return nil
}

func (a *App) showInstalled() {
	rec := a.records.Read()
	if len(rec) == 0 {
		a.console.PrintInfo("No packages installed.")
		return
	}
	a.console.Print(a.console.Styles().RenderInstalled(rec))
}
