package paths

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ravendevteam")
	l := Resolve(root)

	assert.Equal(t, root, l.Root)
	assert.Equal(t, filepath.Join(root, ".toolbox", "packages.json"), l.IndexFile)
	assert.Equal(t, filepath.Join(root, "record.json"), l.RecordFile)
	assert.Equal(t, filepath.Join(root, ".toolbox", "history.db"), l.HistoryDB)
	assert.Equal(t, filepath.Join(root, ".toolbox", "config.yaml"), l.ConfigFile)
	assert.Equal(t, filepath.Join(root, ".toolbox", "logs"), l.LogsDir)
	assert.Equal(t, filepath.Join(root, "Zap"), l.PackageDir("Zap"))
}

func TestToolDirOutsidePackageNamespace(t *testing.T) {
	l := Resolve(t.TempDir())

	assert.NotEqual(t, l.ToolDir, l.PackageDir("toolbox"))
	assert.Error(t, ValidateName(filepath.Base(l.ToolDir)))
	for _, p := range []string{l.IndexFile, l.HistoryDB, l.ConfigFile, l.LogsDir} {
		assert.Equal(t, l.ToolDir, filepath.Dir(p), p)
	}
}

func TestResolveDefaultRoot(t *testing.T) {
	l := Resolve("")
	assert.Equal(t, Vendor, filepath.Base(l.Root))
}

func TestDefaultConfigPathHonorsEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("TOOLBOX_HOME", root)
	assert.Equal(t, filepath.Join(root, ".toolbox", "config.yaml"), DefaultConfigPath())
}

func TestPlatformName(t *testing.T) {
	tests := map[string]string{
		"windows": Windows,
		"darwin":  Darwin,
		"linux":   Linux,
		"freebsd": "Freebsd",
	}
	for goos, want := range tests {
		assert.Equal(t, want, platformFor(goos), goos)
	}
	assert.Equal(t, platformFor(runtime.GOOS), PlatformName())
}

func TestValidateName(t *testing.T) {
	valid := []string{"toolbox", "Zap", "my-tool_2"}
	for _, n := range valid {
		assert.NoError(t, ValidateName(n), n)
	}

	invalid := []string{"", ".", "..", "../etc", `a\b`, "a/b", ".staging", ".toolbox", "C:thing"}
	for _, n := range invalid {
		assert.Error(t, ValidateName(n), n)
	}
}
