package main

import (
	"errors"
	"fmt"
	"testing"

	"toolbox/internal/index"
	"toolbox/internal/installer"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "missing list",
			err:  fmt.Errorf("%w at /x/packages.json", index.ErrIndexMissing),
			want: "Package list not found. Try running the 'update' command to fetch the package list.",
		},
		{
			name: "corrupt list",
			err:  fmt.Errorf("%w: unexpected end of JSON input", index.ErrCorruptIndex),
			want: "Failed to read package list (corrupted or invalid JSON).",
		},
		{
			name: "download",
			err:  fmt.Errorf("%w: %w", index.ErrDownload, errors.New("connection refused")),
			want: "Failed to download package list: connection refused",
		},
		{
			name: "package error",
			err:  &installer.PackageError{Package: "x", Err: installer.ErrNotInstalled},
			want: "Package 'x' is not installed.",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Éclair", capitalize("éclair"))
}
