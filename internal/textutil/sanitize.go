// Package textutil sanitizes attachment filenames for safe filesystem
// use. Vault attachment names are user-controlled and may carry path
// separators, reserved characters, or decomposed Unicode.
package textutil

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName normalizes a filename to NFC and replaces
// filesystem-unsafe characters. Slashes, backslashes, colons, and
// asterisks become dashes; other unsafe characters are removed. Leading
// dots and dashes are stripped so an attachment can never hide itself or
// escape via "..". Returns fallback when nothing usable remains.
func SanitizeFileName(name, fallback string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = fileNameReplacer.Replace(name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".-")
	if name == "" {
		return fallback
	}
	return name
}

// UniqueName returns name, or name with a numeric suffix when it is
// already in taken. The chosen name is recorded in taken.
func UniqueName(name string, taken map[string]bool) string {
	base := name
	ext := ""
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base = name[:dot]
		ext = name[dot:]
	}
	candidate := name
	for i := 1; taken[candidate]; i++ {
		candidate = base + "-" + strconv.Itoa(i) + ext
	}
	taken[candidate] = true
	return candidate
}
