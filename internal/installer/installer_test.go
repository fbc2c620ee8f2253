package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"toolbox/internal/fetch"
	"toolbox/internal/index"
	"toolbox/internal/paths"
	"toolbox/internal/record"
	"toolbox/internal/report"
	"toolbox/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testPlatform = "Linux"

func digest(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

func pkg(name, body string) index.Package {
	url := fmt.Sprintf("https://dl.example.com/%s.tar.gz", strings.ToLower(name))
	return index.Package{
		Name:    name,
		Version: "1.0",
		OS:      []string{testPlatform},
		URL:     map[string]string{testPlatform: url},
		SHA256:  map[string]string{testPlatform: digest(body)},
	}
}

type fakeIndex struct {
	idx         *index.Index
	invalidated int
}

func (f *fakeIndex) Get(context.Context) (*index.Index, error) { return f.idx, nil }
func (f *fakeIndex) Invalidate()                               { f.invalidated++ }

type fakeUpdater struct{ err error }

func (f fakeUpdater) Update(context.Context) (string, error) { return "https://x/packages.json", f.err }

type fakeDownloader struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  int
}

func (f *fakeDownloader) Download(_ context.Context, url, dest string, progress fetch.ProgressFunc) (int64, error) {
	f.mu.Lock()
	f.calls++
	body, ok := f.bodies[url]
	f.mu.Unlock()
	if !ok {
		return 0, errors.New("404 Not Found")
	}
	if progress != nil {
		progress(int64(len(body)), int64(len(body)))
	}
	return int64(len(body)), os.WriteFile(dest, []byte(body), 0644)
}

type fakePrompter struct {
	answers   []bool
	questions []string
}

func (f *fakePrompter) Confirm(q string) (bool, error) {
	f.questions = append(f.questions, q)
	if len(f.answers) == 0 {
		return false, errors.New("no more answers")
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

type fakeShortcuts struct {
	mu      sync.Mutex
	created map[string]string
	removed []string
	err     error
}

func (f *fakeShortcuts) Create(_ context.Context, name, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.created == nil {
		f.created = map[string]string{}
	}
	f.created[name] = target
	return "/desktop/" + name, nil
}

func (f *fakeShortcuts) Remove(_ context.Context, name, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	return nil
}

type harness struct {
	in        *Installer
	layout    paths.Layout
	idx       *fakeIndex
	dl        *fakeDownloader
	prompt    *fakePrompter
	shortcuts *fakeShortcuts
	records   *record.Store
	history   *store.History
	out       *report.Recorder
}

func newHarness(t *testing.T, concurrency int, pkgs ...index.Package) *harness {
	t.Helper()

	h := &harness{
		layout:    paths.Resolve(t.TempDir()),
		idx:       &fakeIndex{idx: &index.Index{Packages: pkgs}},
		dl:        &fakeDownloader{bodies: map[string]string{}},
		prompt:    &fakePrompter{},
		shortcuts: &fakeShortcuts{},
		out:       &report.Recorder{},
	}
	h.records = record.NewStore(h.layout.RecordFile)

	hist, err := store.OpenHistory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })
	h.history = hist

	h.in = New(Config{
		Layout:      h.layout,
		Platform:    testPlatform,
		Index:       h.idx,
		Updater:     fakeUpdater{},
		Downloader:  h.dl,
		Records:     h.records,
		History:     hist,
		Shortcuts:   h.shortcuts,
		Prompt:      h.prompt,
		Out:         h.out,
		Concurrency: concurrency,
	})
	return h
}

func (h *harness) serve(p index.Package, body string) {
	h.dl.bodies[p.URL[testPlatform]] = body
}

func (h *harness) statuses(t *testing.T) []store.Status {
	t.Helper()
	entries, err := h.history.List(context.Background(), "", 0)
	require.NoError(t, err)
	var out []store.Status
	for _, e := range entries {
		out = append(out, e.Status)
	}
	return out
}

func TestInstall(t *testing.T) {
	p := pkg("Rebound", "payload-v1")
	p.Shortcut = true
	h := newHarness(t, 1, p)
	h.serve(p, "payload-v1")
	h.prompt.answers = []bool{true}

	require.NoError(t, h.in.Install(context.Background(), "rebound", Options{}))

	artifact := filepath.Join(h.layout.Root, "rebound", "rebound.gz")
	data, err := os.ReadFile(artifact)
	require.NoError(t, err)
	assert.Equal(t, "payload-v1", string(data))

	assert.Equal(t, []string{"Are you sure you want to install 'rebound'? (Y/N): "}, h.prompt.questions)
	assert.Equal(t, []string{"Installing rebound (v1.0) for Linux...", "Downloaded rebound.gz (10 B)"},
		h.out.Texts(report.LevelInfo))
	assert.Equal(t, []string{"Shortcut created at /desktop/rebound", "rebound installed successfully!"},
		h.out.Texts(report.LevelSuccess))
	assert.Equal(t, artifact, h.shortcuts.created["rebound"])
	assert.Equal(t, []string{"Downloading rebound"}, h.out.Labels)

	rec := h.records.Read()
	assert.Equal(t, "1.0", rec["rebound"].Version, "record keyed by the name as typed")
	assert.Equal(t, []store.Status{store.StatusCommitted}, h.statuses(t))

	entries, _ := os.ReadDir(h.layout.StagingDir)
	assert.Empty(t, entries, "staging cleaned up")
}

func TestInstallNotFound(t *testing.T) {
	h := newHarness(t, 1)

	err := h.in.Install(context.Background(), "ghost", Options{Yes: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrPackageNotFound))
	assert.Equal(t, "Package 'ghost' not found in the package list.", err.Error())
}

func TestInstallUnsupportedPlatform(t *testing.T) {
	p := pkg("winonly", "x")
	p.OS = []string{"Windows"}
	h := newHarness(t, 1, p)

	err := h.in.Install(context.Background(), "winonly", Options{Yes: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.Equal(t, "'winonly' is not available for your platform (Linux).", err.Error())
	assert.Zero(t, h.dl.calls)
}

func TestInstallCancelled(t *testing.T) {
	p := pkg("app", "x")
	h := newHarness(t, 1, p)
	h.serve(p, "x")
	h.prompt.answers = []bool{false}

	require.NoError(t, h.in.Install(context.Background(), "app", Options{}))

	assert.Equal(t, []string{"Installation of 'app' cancelled."}, h.out.Texts(report.LevelInfo))
	assert.Zero(t, h.dl.calls)
	assert.NoDirExists(t, h.layout.PackageDir("app"))
	assert.Equal(t, []store.Status{store.StatusRolledBack}, h.statuses(t))
}

func TestInstallYesSkipsPrompt(t *testing.T) {
	p := pkg("app", "x")
	h := newHarness(t, 1, p)
	h.serve(p, "x")

	require.NoError(t, h.in.Install(context.Background(), "app", Options{Yes: true}))
	assert.Empty(t, h.prompt.questions)
	assert.DirExists(t, h.layout.PackageDir("app"))
}

func TestInstallChecksumMismatchKeepsPrevious(t *testing.T) {
	p := pkg("app", "good")
	h := newHarness(t, 1, p)

	// Previous installation.
	old := filepath.Join(h.layout.PackageDir("app"), "app.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0755))
	require.NoError(t, os.WriteFile(old, []byte("old"), 0644))

	h.serve(p, "tampered")
	err := h.in.Install(context.Background(), "app", Options{Yes: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrChecksumMismatch))
	assert.Equal(t, "Checksum mismatch for app. Installation aborted.", err.Error())

	data, err := os.ReadFile(old)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, _ := os.ReadDir(h.layout.StagingDir)
	assert.Empty(t, entries)
	assert.Empty(t, h.records.Read())
	assert.Equal(t, []store.Status{store.StatusFailed}, h.statuses(t))
}

func TestInstallChecksumMismatchFreshInstallLeavesNothing(t *testing.T) {
	p := pkg("app", "good")
	h := newHarness(t, 1, p)
	h.serve(p, "tampered")

	require.Error(t, h.in.Install(context.Background(), "app", Options{Yes: true}))
	assert.NoDirExists(t, h.layout.PackageDir("app"))
}

func TestReinstallReplacesPrevious(t *testing.T) {
	p := pkg("app", "new")
	h := newHarness(t, 1, p)

	stale := filepath.Join(h.layout.PackageDir("app"), "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	h.serve(p, "new")
	require.NoError(t, h.in.Install(context.Background(), "app", Options{Yes: true}))

	assert.NoFileExists(t, stale)
	data, err := os.ReadFile(filepath.Join(h.layout.PackageDir("app"), "app.gz"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestInstallDownloadFailure(t *testing.T) {
	p := pkg("app", "x")
	h := newHarness(t, 1, p)

	err := h.in.Install(context.Background(), "app", Options{Yes: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Contains(t, err.Error(), "An error occurred during installation of app: download failed")
	assert.NoDirExists(t, h.layout.PackageDir("app"))
}

func TestShortcutFailureIsWarning(t *testing.T) {
	p := pkg("app", "x")
	p.Shortcut = true
	h := newHarness(t, 1, p)
	h.serve(p, "x")
	h.shortcuts.err = errors.New("no desktop")

	require.NoError(t, h.in.Install(context.Background(), "app", Options{Yes: true}))
	assert.Equal(t, []string{"Could not create a shortcut for 'app': no desktop"}, h.out.Texts(report.LevelWarn))
	assert.Contains(t, h.records.Read(), "app")
}

func TestInstallRejectsUnsafeName(t *testing.T) {
	p := pkg("../evil", "x")
	h := newHarness(t, 1, p)
	h.serve(p, "x")

	require.Error(t, h.in.Install(context.Background(), "../evil", Options{Yes: true}))
	assert.Zero(t, h.dl.calls)
}

func TestInstallAllSequential(t *testing.T) {
	a, b := pkg("a", "A"), pkg("b", "B")
	h := newHarness(t, 4, a, b)
	h.serve(a, "A")
	h.serve(b, "B")
	h.prompt.answers = []bool{true, false}

	require.NoError(t, h.in.Install(context.Background(), All, Options{}))

	assert.Len(t, h.prompt.questions, 2, "each package asks for itself")
	assert.DirExists(t, h.layout.PackageDir("a"))
	assert.NoDirExists(t, h.layout.PackageDir("b"))
	assert.Equal(t, []string{"a"}, h.records.Read().Names())
}

func TestInstallAllParallelReportsFirstError(t *testing.T) {
	pkgs := []index.Package{pkg("a", "A"), pkg("b", "B"), pkg("c", "C"), pkg("d", "D")}
	unsupported := pkg("e", "E")
	unsupported.OS = []string{"Darwin"}
	pkgs = append(pkgs, unsupported)

	h := newHarness(t, 3, pkgs...)
	for _, p := range pkgs[:4] {
		h.serve(p, strings.ToUpper(p.Name))
	}

	err := h.in.Install(context.Background(), All, Options{Yes: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.Contains(t, err.Error(), "1 of 5 packages failed to install")

	names := h.records.Read().Names()
	sort.Strings(names)
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	assert.Equal(t, 4, h.dl.calls)
}

func TestUninstall(t *testing.T) {
	p := pkg("app", "x")
	h := newHarness(t, 1, p)
	h.serve(p, "x")
	require.NoError(t, h.in.Install(context.Background(), "app", Options{Yes: true}))

	h.prompt.answers = []bool{true}
	require.NoError(t, h.in.Uninstall(context.Background(), "app", Options{}))

	assert.NoDirExists(t, h.layout.PackageDir("app"))
	assert.Empty(t, h.records.Read())
	assert.Equal(t, []string{"Are you sure you want to uninstall 'app'? (Y/N): "}, h.prompt.questions)
	assert.Contains(t, h.out.Texts(report.LevelSuccess), "'app' has been successfully uninstalled.")
	assert.Equal(t, []string{"app"}, h.shortcuts.removed)
	assert.Equal(t, []store.Status{store.StatusCommitted, store.StatusCommitted}, h.statuses(t))
}

func TestUninstallNotInstalled(t *testing.T) {
	h := newHarness(t, 1)

	err := h.in.Uninstall(context.Background(), "app", Options{Yes: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInstalled))
	assert.Equal(t, "Package 'app' is not installed.", err.Error())
}

func TestUninstallCancelled(t *testing.T) {
	h := newHarness(t, 1)
	require.NoError(t, os.MkdirAll(h.layout.PackageDir("app"), 0755))
	h.prompt.answers = []bool{false}

	require.NoError(t, h.in.Uninstall(context.Background(), "app", Options{}))
	assert.DirExists(t, h.layout.PackageDir("app"))
	assert.Equal(t, []string{"Uninstallation of 'app' cancelled."}, h.out.Texts(report.LevelInfo))
}

func TestUninstallWithoutRecordEntry(t *testing.T) {
	h := newHarness(t, 1)
	require.NoError(t, os.MkdirAll(h.layout.PackageDir("manual"), 0755))

	require.NoError(t, h.in.Uninstall(context.Background(), "manual", Options{Yes: true}))
	assert.NoDirExists(t, h.layout.PackageDir("manual"))
}

func TestUpdateInvalidatesIndex(t *testing.T) {
	h := newHarness(t, 1)

	require.NoError(t, h.in.Update(context.Background()))
	assert.Equal(t, 1, h.idx.invalidated)

	entries, err := h.history.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, store.OpUpdate, entries[0].Operation)
	assert.Equal(t, "packages.json", entries[0].Package)
}

func TestUpdateFailure(t *testing.T) {
	h := newHarness(t, 1)
	h.in.updater = fakeUpdater{err: errors.New("offline")}

	require.Error(t, h.in.Update(context.Background()))
	assert.Equal(t, []store.Status{store.StatusFailed}, h.statuses(t))
}

func TestNilHistoryAndShortcuts(t *testing.T) {
	p := pkg("app", "x")
	p.Shortcut = true
	layout := paths.Resolve(t.TempDir())
	dl := &fakeDownloader{bodies: map[string]string{p.URL[testPlatform]: "x"}}

	in := New(Config{
		Layout:     layout,
		Platform:   testPlatform,
		Index:      &fakeIndex{idx: &index.Index{Packages: []index.Package{p}}},
		Downloader: dl,
		Records:    record.NewStore(layout.RecordFile),
		Prompt:     &fakePrompter{},
	})
	require.NoError(t, in.Install(context.Background(), "app", Options{Yes: true}))
	require.NoError(t, in.Uninstall(context.Background(), "app", Options{Yes: true}))
}

func TestSelfInstallKeepsToolData(t *testing.T) {
	p := pkg("toolbox", "toolbox-v2")
	h := newHarness(t, 1, p)
	h.serve(p, "toolbox-v2")
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(h.layout.LogsDir, 0755))
	require.NoError(t, os.WriteFile(h.layout.IndexFile, []byte(`{"packages": []}`), 0644))
	require.NoError(t, os.WriteFile(h.layout.ConfigFile, []byte("index:\n"), 0644))
	hist, err := store.OpenHistory(h.layout.HistoryDB)
	require.NoError(t, err)
	defer hist.Close()

	toolData := []string{h.layout.IndexFile, h.layout.ConfigFile, h.layout.HistoryDB, h.layout.LogsDir}

	// Install twice so the second run replaces an existing installation.
	for i := 0; i < 2; i++ {
		require.NoError(t, h.in.Install(ctx, "toolbox", Options{Yes: true}))
		for _, f := range toolData {
			_, err := os.Stat(f)
			assert.NoError(t, err, "run %d: %s", i+1, f)
		}
	}
	data, err := os.ReadFile(filepath.Join(h.layout.PackageDir("toolbox"), "toolbox.gz"))
	require.NoError(t, err)
	assert.Equal(t, "toolbox-v2", string(data))

	require.NoError(t, h.in.Uninstall(ctx, "toolbox", Options{Yes: true}))
	assert.NoDirExists(t, h.layout.PackageDir("toolbox"))
	for _, f := range toolData {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}

	// The journal opened above is still usable.
	tx, err := hist.Begin(ctx, store.OpInstall, "toolbox", "2")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}
