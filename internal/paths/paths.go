// Package paths resolves where Toolbox keeps its package list, install
// record, history, logs, and installed packages on the host platform.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
)

// Vendor is the directory under the platform data root that holds every
// package installed by Toolbox, Toolbox itself included.
const Vendor = "ravendevteam"

// Platform names as they appear in the package list's "os", "url" and
// "sha256" fields.
const (
	Windows = "Windows"
	Darwin  = "Darwin"
	Linux   = "Linux"
)

// PlatformName maps GOOS to the package list's platform naming.
func PlatformName() string {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) string {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	case "linux":
		return Linux
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}

// DefaultRoot returns <platform data dir>/ravendevteam.
//
//	Windows: %APPDATA%\ravendevteam
//	macOS:   ~/Library/Application Support/ravendevteam
//	Linux:   $XDG_DATA_HOME/ravendevteam
func DefaultRoot() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, Vendor)
		}
	}
	// adrg/xdg maps DataHome to ~/Library/Application Support on macOS.
	return filepath.Join(xdg.DataHome, Vendor)
}

// ToolDirName holds Toolbox's own data. ValidateName rejects it, so no
// package directory (not even <root>/toolbox) can overlap it.
const ToolDirName = ".toolbox"

// Layout is the resolved set of Toolbox paths.
type Layout struct {
	Root       string // <root>
	ToolDir    string // <root>/.toolbox
	IndexFile  string // <root>/.toolbox/packages.json
	RecordFile string // <root>/record.json
	HistoryDB  string // <root>/.toolbox/history.db
	ConfigFile string // <root>/.toolbox/config.yaml
	LogsDir    string // <root>/.toolbox/logs
	StagingDir string // <root>/.staging
}

// Resolve builds the layout under root, or under DefaultRoot when root is empty.
func Resolve(root string) Layout {
	if root == "" {
		root = DefaultRoot()
	}
	tool := filepath.Join(root, ToolDirName)
	return Layout{
		Root:       root,
		ToolDir:    tool,
		IndexFile:  filepath.Join(tool, "packages.json"),
		RecordFile: filepath.Join(root, "record.json"),
		HistoryDB:  filepath.Join(tool, "history.db"),
		ConfigFile: filepath.Join(tool, "config.yaml"),
		LogsDir:    filepath.Join(tool, "logs"),
		StagingDir: filepath.Join(root, ".staging"),
	}
}

// DefaultConfigPath is where config.yaml is read from before the config
// itself has had a chance to move the root.
func DefaultConfigPath() string {
	return Resolve(os.Getenv("TOOLBOX_HOME")).ConfigFile
}

// PackageDir returns the installation directory for a package.
func (l Layout) PackageDir(name string) string {
	return filepath.Join(l.Root, name)
}

// ValidateName rejects package names that would escape the root when used
// as a directory name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("package name is empty")
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid package name %q", name)
	}
	if strings.ContainsAny(name, `/\:`) {
		return fmt.Errorf("invalid package name %q: contains a path separator", name)
	}
	return nil
}

// DesktopDir returns the user's desktop directory.
func DesktopDir() string {
	if d := xdg.UserDirs.Desktop; d != "" {
		return d
	}
	return filepath.Join(xdg.Home, "Desktop")
}
