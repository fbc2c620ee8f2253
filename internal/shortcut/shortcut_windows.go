//go:build windows

package shortcut

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func linkPath(desktop, name string) string {
	return filepath.Join(desktop, name+".lnk")
}

// create writes a .lnk through the WScript.Shell COM object. Saving over an
// existing .lnk replaces it.
func create(ctx context.Context, link, target string) error {
	script := fmt.Sprintf(
		"$s = (New-Object -ComObject WScript.Shell).CreateShortcut(%s); "+
			"$s.TargetPath = %s; $s.WorkingDirectory = %s; $s.IconLocation = %s; $s.Save()",
		psQuote(link), psQuote(target), psQuote(filepath.Dir(target)), psQuote(target+",0"),
	)
	_, err := powershell(ctx, script)
	return err
}

// readTarget returns the TargetPath stored in a .lnk.
var readTarget = func(ctx context.Context, link string) (string, error) {
	script := fmt.Sprintf(
		"(New-Object -ComObject WScript.Shell).CreateShortcut(%s).TargetPath", psQuote(link))
	out, err := powershell(ctx, script)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// pointsInto reports whether the .lnk at link targets a file inside dir.
func pointsInto(ctx context.Context, link, dir string) (bool, error) {
	if _, err := os.Stat(link); err != nil {
		return false, err
	}
	target, err := readTarget(ctx, link)
	if err != nil {
		return false, err
	}
	return target != "" && within(target, dir), nil
}

func powershell(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// psQuote single-quotes s for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
