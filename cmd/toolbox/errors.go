package main

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"toolbox/internal/index"
)

// userMessage turns an error into the line shown after "Error: ".
func userMessage(err error) string {
	switch {
	case errors.Is(err, index.ErrIndexMissing):
		return "Package list not found. Try running the 'update' command to fetch the package list."
	case errors.Is(err, index.ErrCorruptIndex):
		return "Failed to read package list (corrupted or invalid JSON)."
	case errors.Is(err, index.ErrDownload):
		return capitalize(err.Error())
	}
	return err.Error()
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	var b strings.Builder
	b.WriteRune(unicode.ToUpper(r))
	b.WriteString(s[n:])
	return b.String()
}
