package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"toolbox/cmd/toolbox/ui"
	"toolbox/internal/installer"
	"toolbox/internal/logging"
	"toolbox/internal/record"

	"github.com/spf13/cobra"
)

const shellHelp = `
Available Commands:
list                List all available packages.
install <package>   Install the specified package. Use * for all packages.
uninstall <package> Uninstall the specified package.
update              Update the package list.
show <package>      Show details of a package.
installed           List installed packages.
history [package]   Show install history.
exit                Exit the application.

Add -y or --yes to install and uninstall to skip the confirmation.
`

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunShell(ctx)
}

type lineResult struct {
	line string
	err  error
}

// RunShell runs the interactive loop until exit, end of input or ctx is
// cancelled. Command errors are printed and the loop carries on.
func (a *App) RunShell(ctx context.Context) error {
	a.console.PrintNotice("Welcome to the Toolbox Package Manager!")
	a.console.Println("Type 'help' for a list of commands or 'exit' to quit.")

	if err := a.cache.Start(ctx); err != nil {
		logging.Get(logging.CategoryShell).Warn("Package list watcher not started: %v", err)
	}
	defer a.cache.Stop()

	for {
		// Read in the background so Ctrl+C ends the shell even mid-line.
		lines := make(chan lineResult, 1)
		go func() {
			line, err := a.prompt.ReadLine("toolbox> ")
			lines <- lineResult{line, err}
		}()

		var r lineResult
		select {
		case <-ctx.Done():
			a.console.PrintSuccess("\nGoodbye!")
			return nil
		case r = <-lines:
		}

		if r.err != nil {
			if errors.Is(r.err, io.EOF) || errors.Is(r.err, ui.ErrInterrupted) {
				a.console.PrintSuccess("\nGoodbye!")
				return nil
			}
			return r.err
		}
		if a.execLine(ctx, r.line) {
			return nil
		}
		if ctx.Err() != nil {
			a.console.PrintSuccess("\nGoodbye!")
			return nil
		}
	}
}

// execLine runs one shell line. Returns true when the shell should exit.
func (a *App) execLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.EqualFold(line, "exit") {
		a.console.PrintSuccess("Goodbye!")
		return true
	}

	fields := strings.Fields(line)
	command := strings.ToLower(fields[0])
	logging.Shell("Command: %s", joinArgs(fields))

	var (
		operand string
		yes     bool
	)
	for _, f := range fields[1:] {
		switch {
		case f == "-y" || f == "--yes":
			yes = true
		case operand == "":
			operand = f
		}
	}

	var err error
	switch command {
	case "list":
		err = a.list(ctx, false)
	case "install":
		if operand == "" {
			a.console.PrintError("You must specify the package name to install.")
			return false
		}
		err = a.installer.Install(ctx, operand, installer.Options{Yes: yes})
	case "uninstall":
		if operand == "" {
			a.console.PrintError("You must specify the package name to uninstall.")
			return false
		}
		err = a.installer.Uninstall(ctx, operand, installer.Options{Yes: yes})
	case "update":
		err = a.installer.Update(ctx)
	case "show":
		if operand == "" {
			a.console.PrintError("You must specify the package name to show.")
			return false
		}
		err = a.show(ctx, operand)
	case "installed":
		a.showInstalled()
	case "history":
		err = a.showHistory(ctx, operand, 20)
	case "help":
		a.console.Println(shellHelp)
	default:
		a.console.PrintWarning("Unknown command. Type 'help' for a list of commands.")
	}

	if err != nil {
		logging.ShellDebug("%s failed: %v", command, err)
		a.console.PrintError(userMessage(err))
	}
	return false
}

// installedEntry finds a record entry for a package, trying the name the
// user typed before any case-insensitive match.
func (a *App) installedEntry(listed, typed string) *record.Entry {
	rec := a.records.Read()
	if e, ok := rec[typed]; ok {
		return &e
	}
	for name, e := range rec {
		if strings.EqualFold(name, listed) {
			e := e
			return &e
		}
	}
	return nil
}
