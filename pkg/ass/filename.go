package ass

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// FileName returns the final segment of path. Trailing separators and "."
// segments are skipped; a path ending in "..", the root or an empty path has
// no file name. Nothing is read from disk.
func FileName(path string) (string, error) {
	p := filepath.ToSlash(path)
	if vol := filepath.VolumeName(path); vol != "" {
		p = p[len(vol):]
	}

	for {
		trimmed := strings.TrimRight(p, "/")
		trimmed = strings.TrimSuffix(trimmed, "/.")
		if trimmed == p {
			break
		}
		p = trimmed
	}

	name := p
	if i := strings.LastIndex(p, "/"); i >= 0 {
		name = p[i+1:]
	}

	switch name {
	case "", ".", "..":
		return "", InvalidFileName(path, errors.New("path has no final segment"))
	}
	if !utf8.ValidString(name) {
		return "", InvalidFileName(path, errors.New("file name is not valid UTF-8"))
	}
	return name, nil
}
