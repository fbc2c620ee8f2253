package ui

import (
	"fmt"
	"strings"

	"toolbox/internal/index"
	"toolbox/internal/record"
	"toolbox/internal/store"

	"github.com/charmbracelet/glamour"
)

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// RenderPackages renders the "list" output.
func (s Styles) RenderPackages(pkgs []index.Package) string {
	var sb strings.Builder
	sb.WriteString(s.Info.Render("Available Packages:") + "\n\n")
	for _, p := range pkgs {
		sb.WriteString(s.Name.Render("Name: "+p.Name) + "\n")
		fmt.Fprintf(&sb, "Version: %s\n", p.Version)
		fmt.Fprintf(&sb, "Description: %s\n", p.Description)
		fmt.Fprintf(&sb, "Available for: %s\n", strings.Join(p.OS, ", "))
		fmt.Fprintf(&sb, "Requires Path: %s\n", yesNo(p.RequirePath))
		fmt.Fprintf(&sb, "Creates Shortcut: %s\n", yesNo(p.Shortcut))
		sb.WriteString(s.RenderDivider() + "\n")
	}
	return sb.String()
}

// RenderInstalled renders the install record as a table.
func (s Styles) RenderInstalled(rec record.Record) string {
	t := NewSimpleTable("Installed Packages:", []string{"Name", "Version", "Installed On"})
	for _, name := range rec.Names() {
		e := rec[name]
		when := e.InstalledOn
		if ts := e.InstalledTime(); !ts.IsZero() {
			when = ts.Format("2006-01-02 15:04")
		}
		t.AddRow(name, e.Version, when)
	}
	return t.View(s)
}

// RenderHistory renders journal entries as a table.
func (s Styles) RenderHistory(entries []store.Entry) string {
	t := NewSimpleTable("History:", []string{"Started", "Operation", "Package", "Version", "Status", "Detail"})
	for _, e := range entries {
		t.AddRow(
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Operation,
			e.Package,
			e.Version,
			string(e.Status),
			e.Detail,
		)
	}
	return t.View(s)
}

// PackageMarkdown describes one package as markdown for "show". installed
// is nil when the package is not in the install record.
func PackageMarkdown(p *index.Package, platform string, installed *record.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", p.Description)
	}
	fmt.Fprintf(&sb, "| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Version | %s |\n", cell(p.Version))
	fmt.Fprintf(&sb, "| Available for | %s |\n", cell(strings.Join(p.OS, ", ")))
	fmt.Fprintf(&sb, "| Requires Path | %s |\n", yesNo(p.RequirePath))
	fmt.Fprintf(&sb, "| Creates Shortcut | %s |\n", yesNo(p.Shortcut))
	if installed != nil {
		fmt.Fprintf(&sb, "| Installed | %s (%s) |\n", cell(installed.Version), cell(installed.InstalledOn))
	} else {
		fmt.Fprintf(&sb, "| Installed | No |\n")
	}

	if p.Supports(platform) {
		fmt.Fprintf(&sb, "\n## %s\n\n", platform)
		fmt.Fprintf(&sb, "- Download: <%s>\n", p.ArtifactURL(platform))
		fmt.Fprintf(&sb, "- SHA-256: `%s`\n", p.Checksum(platform))
	} else {
		fmt.Fprintf(&sb, "\n_Not available for %s._\n", platform)
	}
	return sb.String()
}

// RenderMarkdown renders md for the terminal. Without a terminal the
// markdown is laid out without colour.
func RenderMarkdown(md string, theme Theme, tty bool, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch {
	case !tty:
		opts = append(opts, glamour.WithStylePath("notty"))
	case theme.IsDark:
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStylePath("light"))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	return cellReplacer.Replace(s)
}
