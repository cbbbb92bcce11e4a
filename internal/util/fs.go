package util

import (
	"errors"
	"os"
	"strings"
	"unicode/utf8"
)

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveIfExists deletes the file if present.
func RemoveIfExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	} else if os.IsNotExist(err) {
		return nil
	} else {
		return err
	}
}

// FileSize returns the size in bytes, or 0 if the file cannot be stat'ed.
func FileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// NonEmptyFile reports whether path exists and has at least one byte.
func NonEmptyFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Size() > 0
}

// SanitizeFilename cleans a string to be safe as a filename:
// forbidden characters become underscores, runs of underscores collapse,
// and the result is truncated to ~180 runes.
func SanitizeFilename(s string) string {
	const forbidden = `\/:*?"<>|`
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(forbidden, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, " ._-")

	const maxRunes = 180
	if utf8.RuneCountInString(s) > maxRunes {
		var t strings.Builder
		t.Grow(len(s))
		count := 0
		for _, r := range s {
			if count >= maxRunes {
				break
			}
			t.WriteRune(r)
			count++
		}
		s = t.String()
	}
	return s
}
