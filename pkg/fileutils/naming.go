package fileutils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	finalExtensionRE = regexp.MustCompile(`\.[^.]+$`)
	separatorRunRE   = regexp.MustCompile(`[_-]+`)
	whitespaceRE     = regexp.MustCompile(`\s+`)
)

// TitleFromName derives a display title from a filename: the final extension
// is stripped, runs of underscores and hyphens become a single space, and
// whitespace is collapsed and trimmed.
//
//	TitleFromName("My_Song-01.mp3") == "My Song 01"
func TitleFromName(name string) string {
	name = finalExtensionRE.ReplaceAllString(name, "")
	name = separatorRunRE.ReplaceAllString(name, " ")
	name = whitespaceRE.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// MatchesExtension reports whether the final extension of name is one of
// exts. exts are given without the leading dot; matching ignores case.
func MatchesExtension(name string, exts []string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// IsHidden reports whether a single path element is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
