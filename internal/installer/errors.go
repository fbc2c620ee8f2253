package installer

import (
	"errors"
	"fmt"

	"toolbox/internal/fetch"
	"toolbox/internal/index"
)

var (
	// ErrUnsupportedPlatform means the package has no artifact for this
	// platform.
	ErrUnsupportedPlatform = errors.New("package not available for platform")
	// ErrNotInstalled means the package has no installation directory.
	ErrNotInstalled = errors.New("package is not installed")
	// ErrDownloadFailed means the package artifact could not be fetched.
	ErrDownloadFailed = errors.New("download failed")
)

// PackageError ties a failure to the package it concerns. Its message is the
// one shown to the user.
type PackageError struct {
	Package  string
	Platform string
	Err      error
}

func (e *PackageError) Error() string {
	switch {
	case errors.Is(e.Err, index.ErrPackageNotFound):
		return fmt.Sprintf("Package '%s' not found in the package list.", e.Package)
	case errors.Is(e.Err, ErrUnsupportedPlatform):
		return fmt.Sprintf("'%s' is not available for your platform (%s).", e.Package, e.Platform)
	case errors.Is(e.Err, ErrNotInstalled):
		return fmt.Sprintf("Package '%s' is not installed.", e.Package)
	case errors.Is(e.Err, fetch.ErrChecksumMismatch):
		return fmt.Sprintf("Checksum mismatch for %s. Installation aborted.", e.Package)
	case errors.Is(e.Err, ErrDownloadFailed):
		return fmt.Sprintf("An error occurred during installation of %s: %v", e.Package, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Package, e.Err)
	}
}

func (e *PackageError) Unwrap() error { return e.Err }
