// Package index models the Toolbox package list (packages.json): parsing,
// lookup, platform availability, and keeping the local copy current.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrIndexMissing means no local package list exists.
	ErrIndexMissing = errors.New("package list not found")
	// ErrCorruptIndex means the local package list is not valid JSON.
	ErrCorruptIndex = errors.New("package list is corrupted or invalid JSON")
	// ErrPackageNotFound means no package of that name is listed.
	ErrPackageNotFound = errors.New("package not found in the package list")
	// ErrDownload means the package list could not be fetched.
	ErrDownload = errors.New("failed to download package list")
)

// Package is one entry of the package list.
type Package struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	OS          []string          `json:"os"`
	RequirePath bool              `json:"requirepath"`
	Shortcut    bool              `json:"shortcut"`
	URL         map[string]string `json:"url"`
	SHA256      map[string]string `json:"sha256"`
}

// Index is the whole package list.
type Index struct {
	UpdateURL string    `json:"updateurl,omitempty"`
	Packages  []Package `json:"packages"`
}

// Parse decodes a package list.
func Parse(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	return &idx, nil
}

// Load reads and parses the package list at p.
func Load(p string) (*Index, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrIndexMissing, p)
		}
		return nil, fmt.Errorf("failed to read package list: %w", err)
	}
	return Parse(data)
}

// Find looks a package up by name, ignoring case.
func (idx *Index) Find(name string) (*Package, error) {
	for i := range idx.Packages {
		if strings.EqualFold(idx.Packages[i].Name, name) {
			return &idx.Packages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPackageNotFound, name)
}

// UpdateURL returns the "updateurl" string of a raw package list, or
// fallback when raw is not valid JSON or carries no usable value.
func UpdateURL(raw []byte, fallback string) string {
	if !gjson.ValidBytes(raw) {
		return fallback
	}
	r := gjson.GetBytes(raw, "updateurl")
	if r.Type != gjson.String || strings.TrimSpace(r.Str) == "" {
		return fallback
	}
	return r.Str
}

// ListsPlatform reports whether platform appears in the package's os list.
func (p *Package) ListsPlatform(platform string) bool {
	for _, o := range p.OS {
		if o == platform {
			return true
		}
	}
	return false
}

// Supports reports whether the package can be installed on platform: it is
// listed for it and has both an artifact URL and a digest.
func (p *Package) Supports(platform string) bool {
	return p.ListsPlatform(platform) && p.URL[platform] != "" && p.SHA256[platform] != ""
}

// ArtifactURL returns the download URL for platform.
func (p *Package) ArtifactURL(platform string) string {
	return p.URL[platform]
}

// Checksum returns the expected SHA-256 for platform.
func (p *Package) Checksum(platform string) string {
	return p.SHA256[platform]
}

// ArtifactExt returns the extension of the artifact file for platform,
// without the dot, e.g. "exe" or "zip". The query string and fragment are
// ignored. Returns "bin" when the URL path has no extension.
func (p *Package) ArtifactExt(platform string) string {
	raw := p.URL[platform]
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	ext := strings.TrimPrefix(path.Ext(raw), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// Available returns the packages installable on platform, in list order.
func (idx *Index) Available(platform string) []Package {
	var out []Package
	for _, p := range idx.Packages {
		if p.Supports(platform) {
			out = append(out, p)
		}
	}
	return out
}
