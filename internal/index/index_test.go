package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `{
  "updateurl": "https://mirror.example.com/packages.json",
  "packages": [
    {
      "name": "Toolbox",
      "version": "1.2.0",
      "description": "The package manager itself.",
      "os": ["Windows", "Darwin"],
      "requirepath": true,
      "shortcut": false,
      "url": {
        "Windows": "https://example.com/dl/toolbox.exe",
        "Darwin": "https://example.com/dl/toolbox.zip?raw=1"
      },
      "sha256": {"Windows": "aa", "Darwin": "bb"}
    },
    {
      "name": "Rebound",
      "version": "0.3",
      "description": "Listed for Linux without an artifact.",
      "os": ["Windows", "Linux"],
      "requirepath": false,
      "shortcut": true,
      "url": {"Windows": "https://example.com/dl/rebound"},
      "sha256": {"Windows": "cc"}
    }
  ]
}`

func TestParse(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com/packages.json", idx.UpdateURL)
	require.Len(t, idx.Packages, 2)

	want := Package{
		Name:        "Toolbox",
		Version:     "1.2.0",
		Description: "The package manager itself.",
		OS:          []string{"Windows", "Darwin"},
		RequirePath: true,
		URL: map[string]string{
			"Windows": "https://example.com/dl/toolbox.exe",
			"Darwin":  "https://example.com/dl/toolbox.zip?raw=1",
		},
		SHA256: map[string]string{"Windows": "aa", "Darwin": "bb"},
	}
	if diff := cmp.Diff(want, idx.Packages[0]); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCorrupt(t *testing.T) {
	_, err := Parse([]byte(`{"packages": [`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptIndex))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "packages.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexMissing))
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "packages.json")
	require.NoError(t, os.WriteFile(p, []byte(sampleIndex), 0644))

	idx, err := Load(p)
	require.NoError(t, err)
	assert.Len(t, idx.Packages, 2)
}

func TestFindIsCaseInsensitive(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	for _, name := range []string{"toolbox", "TOOLBOX", "Toolbox"} {
		p, err := idx.Find(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Toolbox", p.Name)
	}

	_, err = idx.Find("missing")
	assert.True(t, errors.Is(err, ErrPackageNotFound))
}

func TestSupports(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	tb := idx.Packages[0]
	assert.True(t, tb.Supports("Windows"))
	assert.True(t, tb.Supports("Darwin"))
	assert.False(t, tb.Supports("Linux"))

	rb := idx.Packages[1]
	assert.True(t, rb.ListsPlatform("Linux"))
	assert.False(t, rb.Supports("Linux"), "listed but no artifact")

	assert.Len(t, idx.Available("Windows"), 2)
	assert.Len(t, idx.Available("Darwin"), 1)
	assert.Empty(t, idx.Available("Linux"))
}

func TestArtifactExt(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	assert.Equal(t, "exe", idx.Packages[0].ArtifactExt("Windows"))
	assert.Equal(t, "zip", idx.Packages[0].ArtifactExt("Darwin"))
	assert.Equal(t, "bin", idx.Packages[1].ArtifactExt("Windows"))
}

func TestUpdateURL(t *testing.T) {
	const fallback = "https://default.example.com/packages.json"

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"present", `{"updateurl": "https://x/p.json", "packages": []}`, "https://x/p.json"},
		{"absent", `{"packages": []}`, fallback},
		{"empty", `{"updateurl": "  "}`, fallback},
		{"wrong type", `{"updateurl": 5}`, fallback},
		{"corrupt", `{"updateurl": "https://x/p.json"`, fallback},
		{"no bytes", ``, fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UpdateURL([]byte(tt.raw), fallback))
		})
	}
}
