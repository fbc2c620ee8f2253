// Package installer installs and uninstalls packages from the package list.
//
// An install downloads the artifact into a per-transaction staging
// directory, verifies its SHA-256 and only then moves it into place, so a
// failed or tampered download never disturbs an existing installation.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"toolbox/internal/fetch"
	"toolbox/internal/index"
	"toolbox/internal/logging"
	"toolbox/internal/paths"
	"toolbox/internal/record"
	"toolbox/internal/report"
	"toolbox/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// All is the package name that selects every package in the list.
const All = "*"

// IndexSource hands out the current package list.
type IndexSource interface {
	Get(ctx context.Context) (*index.Index, error)
	Invalidate()
}

// Updater refreshes the local package list.
type Updater interface {
	Update(ctx context.Context) (string, error)
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// Shortcuts creates and removes desktop shortcuts.
type Shortcuts interface {
	Create(ctx context.Context, name, target string) (string, error)
	Remove(ctx context.Context, name, installDir string) error
}

// Options modify a single install or uninstall.
type Options struct {
	// Yes skips the confirmation prompt.
	Yes bool
}

// Config wires an Installer. Index, Downloader, Records and Prompt are
// required; History and Shortcuts may be nil to disable them.
type Config struct {
	Layout      paths.Layout
	Platform    string // defaults to paths.PlatformName()
	Index       IndexSource
	Updater     Updater
	Downloader  index.Downloader
	Records     *record.Store
	History     *store.History
	Shortcuts   Shortcuts
	Prompt      Prompter
	Out         report.Reporter
	Concurrency int
}

// Installer runs install, uninstall and update transactions.
type Installer struct {
	layout      paths.Layout
	platform    string
	index       IndexSource
	updater     Updater
	dl          index.Downloader
	records     *record.Store
	history     *store.History
	shortcuts   Shortcuts
	prompt      Prompter
	out         report.Reporter
	concurrency int
}

// New creates an Installer.
func New(cfg Config) *Installer {
	in := &Installer{
		layout:      cfg.Layout,
		platform:    cfg.Platform,
		index:       cfg.Index,
		updater:     cfg.Updater,
		dl:          cfg.Downloader,
		records:     cfg.Records,
		history:     cfg.History,
		shortcuts:   cfg.Shortcuts,
		prompt:      cfg.Prompt,
		out:         cfg.Out,
		concurrency: cfg.Concurrency,
	}
	if in.platform == "" {
		in.platform = paths.PlatformName()
	}
	if in.out == nil {
		in.out = report.Nop{}
	}
	if in.concurrency < 1 {
		in.concurrency = 1
	}
	return in
}

// Platform returns the platform packages are installed for.
func (in *Installer) Platform() string {
	return in.platform
}

// Install installs name, or every listed package when name is "*".
func (in *Installer) Install(ctx context.Context, name string, opts Options) error {
	idx, err := in.index.Get(ctx)
	if err != nil {
		return err
	}
	if name == All {
		return in.installAll(ctx, idx, opts)
	}
	return in.installOne(ctx, idx, name, opts)
}

// installAll installs each package in list order. With Yes set and more
// than one worker configured the downloads run in parallel. Every package is
// attempted; the first failure is returned after all have finished.
func (in *Installer) installAll(ctx context.Context, idx *index.Index, opts Options) error {
	var g errgroup.Group
	limit := 1
	if opts.Yes {
		limit = in.concurrency
	}
	g.SetLimit(limit)
	logging.Install("Installing all %d packages (workers=%d)", len(idx.Packages), limit)

	failed := make([]error, len(idx.Packages))
	for i := range idx.Packages {
		i := i
		name := idx.Packages[i].Name
		g.Go(func() error {
			if err := in.installOne(ctx, idx, name, opts); err != nil {
				report.Warnf(in.out, "%v", err)
				failed[i] = err
				return err
			}
			return nil
		})
	}
	first := g.Wait()
	if first == nil {
		return nil
	}

	n := 0
	for _, err := range failed {
		if err != nil {
			n++
		}
	}
	return fmt.Errorf("%d of %d packages failed to install: %w", n, len(idx.Packages), first)
}

func (in *Installer) installOne(ctx context.Context, idx *index.Index, name string, opts Options) error {
	timer := logging.StartTimer(logging.CategoryInstall, "Install "+name)
	defer timer.Stop()

	pkg, err := idx.Find(name)
	if err != nil {
		return &PackageError{Package: name, Err: err}
	}
	if err := paths.ValidateName(name); err != nil {
		return &PackageError{Package: name, Err: err}
	}
	if !pkg.Supports(in.platform) {
		return &PackageError{Package: name, Platform: in.platform, Err: ErrUnsupportedPlatform}
	}

	tx := in.begin(ctx, store.OpInstall, name, pkg.Version)

	ok, err := in.confirm(opts, fmt.Sprintf("Are you sure you want to install '%s'? (Y/N): ", name))
	if err != nil {
		tx.fail(err)
		return err
	}
	if !ok {
		report.Infof(in.out, "Installation of '%s' cancelled.", name)
		tx.rollback("cancelled")
		return nil
	}

	report.Infof(in.out, "Installing %s (v%s) for %s...", name, pkg.Version, in.platform)
	target, err := in.stageAndCommit(ctx, tx, name, pkg)
	if err != nil {
		tx.fail(err)
		logging.Get(logging.CategoryInstall).
			With(zap.String("package", name), zap.String("tx", tx.id())).
			Error("Install failed: %v", err)
		var pe *PackageError
		if errors.As(err, &pe) {
			return err
		}
		return &PackageError{Package: name, Err: err}
	}

	if pkg.Shortcut && in.shortcuts != nil {
		if link, err := in.shortcuts.Create(ctx, name, target); err != nil {
			report.Warnf(in.out, "Could not create a shortcut for '%s': %v", name, err)
		} else {
			report.Successf(in.out, "Shortcut created at %s", link)
		}
	}
	if pkg.RequirePath {
		report.Infof(in.out, "%s is meant to be run from a terminal. Add %s to your PATH to use it.",
			name, filepath.Dir(target))
	}

	if _, err := in.records.Put(name, pkg.Version); err != nil {
		report.Warnf(in.out, "Could not update the install record: %v", err)
	}
	report.Successf(in.out, "%s installed successfully!", name)
	tx.commit()
	return nil
}

// stageAndCommit downloads and verifies the artifact, then swaps it into the
// package directory. Returns the installed artifact path.
func (in *Installer) stageAndCommit(ctx context.Context, tx journalTx, name string, pkg *index.Package) (string, error) {
	id := tx.id()
	if id == "" {
		id = uuid.NewString()
	}
	staging := filepath.Join(in.layout.StagingDir, id)
	payload := filepath.Join(staging, "payload")
	if err := os.MkdirAll(payload, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logging.Get(logging.CategoryInstall).Warn("Failed to remove staging %s: %v", staging, err)
		}
	}()

	file := name + "." + pkg.ArtifactExt(in.platform)
	artifact := filepath.Join(payload, file)

	update, done := in.out.Progress(fmt.Sprintf("Downloading %s", name))
	n, err := in.dl.Download(ctx, pkg.ArtifactURL(in.platform), artifact, update)
	done()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	report.Infof(in.out, "Downloaded %s (%s)", file, humanize.Bytes(uint64(n)))

	if err := fetch.VerifySHA256(artifact, pkg.Checksum(in.platform)); err != nil {
		return "", &PackageError{Package: name, Err: err}
	}
	logging.InstallDebug("Verified %s", artifact)

	dir := in.layout.PackageDir(name)
	if err := commit(payload, dir, filepath.Join(staging, "previous")); err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// commit moves payload to dir. An existing dir is first moved to backup and
// put back if the swap fails.
func commit(payload, dir, backup string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dir), err)
	}

	hadPrevious := false
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, backup); err != nil {
			return fmt.Errorf("failed to move previous installation aside: %w", err)
		}
		hadPrevious = true
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}

	if err := os.Rename(payload, dir); err != nil {
		if hadPrevious {
			if rerr := os.Rename(backup, dir); rerr != nil {
				logging.InstallError("Failed to restore %s from %s: %v", dir, backup, rerr)
			}
		}
		return fmt.Errorf("failed to move package into place: %w", err)
	}
	return nil
}

// Uninstall removes an installed package's directory and record entry.
func (in *Installer) Uninstall(ctx context.Context, name string, opts Options) error {
	if err := paths.ValidateName(name); err != nil {
		return &PackageError{Package: name, Err: err}
	}
	dir := in.layout.PackageDir(name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return &PackageError{Package: name, Err: ErrNotInstalled}
		}
		return &PackageError{Package: name, Err: err}
	}

	version := in.records.Read()[name].Version
	tx := in.begin(ctx, store.OpUninstall, name, version)

	ok, err := in.confirm(opts, fmt.Sprintf("Are you sure you want to uninstall '%s'? (Y/N): ", name))
	if err != nil {
		tx.fail(err)
		return err
	}
	if !ok {
		report.Infof(in.out, "Uninstallation of '%s' cancelled.", name)
		tx.rollback("cancelled")
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		tx.fail(err)
		return &PackageError{Package: name, Err: fmt.Errorf("failed to remove %s: %w", dir, err)}
	}
	report.Successf(in.out, "'%s' has been successfully uninstalled.", name)

	if in.shortcuts != nil {
		if err := in.shortcuts.Remove(ctx, name, dir); err != nil {
			report.Warnf(in.out, "Could not remove the shortcut for '%s': %v", name, err)
		}
	}
	if _, err := in.records.Delete(name); err != nil {
		report.Warnf(in.out, "Could not update the install record: %v", err)
	}
	logging.Install("Uninstalled %s", name)
	tx.commit()
	return nil
}

// Update refreshes the package list and drops any cached copy.
func (in *Installer) Update(ctx context.Context) error {
	tx := in.begin(ctx, store.OpUpdate, filepath.Base(in.layout.IndexFile), "")
	used, err := in.updater.Update(ctx)
	in.index.Invalidate()
	if err != nil {
		tx.fail(err)
		return err
	}
	logging.Index("Package list refreshed from %s", used)
	tx.commit()
	return nil
}

func (in *Installer) confirm(opts Options, question string) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	return in.prompt.Confirm(question)
}
