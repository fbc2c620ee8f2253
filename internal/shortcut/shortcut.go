// Package shortcut places desktop shortcuts for installed packages.
package shortcut

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"toolbox/internal/logging"
	"toolbox/internal/paths"
)

// Maker creates and removes desktop shortcuts.
type Maker struct {
	desktop string
}

// New returns a Maker writing into desktop, or into the user's desktop
// directory when desktop is empty.
func New(desktop string) *Maker {
	if desktop == "" {
		desktop = paths.DesktopDir()
	}
	return &Maker{desktop: desktop}
}

// Desktop returns the directory shortcuts are placed in.
func (m *Maker) Desktop() string {
	return m.desktop
}

// Create places a shortcut called name pointing at target, replacing any
// existing shortcut of that name. Returns the shortcut path.
func (m *Maker) Create(ctx context.Context, name, target string) (string, error) {
	if _, err := os.Stat(target); err != nil {
		return "", fmt.Errorf("shortcut target %s: %w", target, err)
	}
	if err := os.MkdirAll(m.desktop, 0755); err != nil {
		return "", fmt.Errorf("failed to create desktop directory: %w", err)
	}
	link := linkPath(m.desktop, name)
	if err := create(ctx, link, target); err != nil {
		return "", fmt.Errorf("failed to create shortcut for %s: %w", name, err)
	}
	logging.Install("Created shortcut %s -> %s", link, target)
	return link, nil
}

// Remove deletes the shortcut called name if it points into installDir.
// A missing shortcut is not an error.
func (m *Maker) Remove(ctx context.Context, name, installDir string) error {
	link := linkPath(m.desktop, name)
	owned, err := pointsInto(ctx, link, installDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to inspect shortcut %s: %w", link, err)
	}
	if !owned {
		logging.InstallDebug("Leaving %s in place, it does not point into %s", link, installDir)
		return nil
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove shortcut %s: %w", link, err)
	}
	logging.Install("Removed shortcut %s", link)
	return nil
}

func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
