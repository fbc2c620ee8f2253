package index

import (
	"context"
	"errors"
	"fmt"
	"os"

	"toolbox/internal/fetch"
	"toolbox/internal/logging"
	"toolbox/internal/report"

	"github.com/tidwall/gjson"
)

// Downloader fetches a URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url, dest string, progress fetch.ProgressFunc) (int64, error)
}

// Manager owns the local copy of the package list.
type Manager struct {
	path       string
	defaultURL string
	dl         Downloader
	out        report.Reporter
}

// NewManager creates a Manager for the package list at path. defaultURL is
// used for the first download and whenever the local list names no other.
func NewManager(path, defaultURL string, dl Downloader, out report.Reporter) *Manager {
	if out == nil {
		out = report.Nop{}
	}
	return &Manager{path: path, defaultURL: defaultURL, dl: dl, out: out}
}

// Path returns the local package list path.
func (m *Manager) Path() string {
	return m.path
}

// Ensure downloads the package list from the default URL if no local copy
// exists yet.
func (m *Manager) Ensure(ctx context.Context) error {
	if _, err := os.Stat(m.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat package list: %w", err)
	}

	report.Alertf(m.out, "Package list not found at %s. Downloading...", m.path)
	logging.Index("Package list missing at %s, downloading from %s", m.path, m.defaultURL)

	if _, err := m.dl.Download(ctx, m.defaultURL, m.path, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	report.Successf(m.out, "Package list downloaded successfully to %s.", m.path)
	return nil
}

// Load reads the local package list without downloading.
func (m *Manager) Load() (*Index, error) {
	return Load(m.path)
}

// EnsureLoad downloads the package list if needed and parses it.
func (m *Manager) EnsureLoad(ctx context.Context) (*Index, error) {
	if err := m.Ensure(ctx); err != nil {
		return nil, err
	}
	return m.Load()
}

// Update refreshes the local package list from the URL it names in
// "updateurl", falling back to the default URL. Returns the URL used.
func (m *Manager) Update(ctx context.Context) (string, error) {
	timer := logging.StartTimer(logging.CategoryIndex, "Update")
	defer timer.Stop()

	raw, err := os.ReadFile(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.IndexWarn("Could not read package list: %v", err)
	}

	updateURL := m.defaultURL
	if err != nil || !gjson.ValidBytes(raw) {
		report.Alertf(m.out, "Package list is missing or invalid. Using default update URL: %s", m.defaultURL)
	} else {
		updateURL = UpdateURL(raw, m.defaultURL)
	}

	report.Infof(m.out, "Updating package list from: %s", updateURL)
	logging.Index("Updating package list from %s", updateURL)

	if _, err := m.dl.Download(ctx, updateURL, m.path, nil); err != nil {
		return updateURL, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	report.Successf(m.out, "Package list updated successfully!")
	return updateURL, nil
}
