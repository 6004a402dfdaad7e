// Package scan lists the series directories of a scanning session.
//
// A session directory holds one subdirectory per series, each containing the
// DICOM files of that series and nothing else.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mrsinham/dicombids/internal/errs"
)

// DefaultIgnore skips the scanner's positioning scans.
var DefaultIgnore = []string{"*localizer*"}

// DefaultDiscover matches session directories of the acquisition system's export layout.
const DefaultDiscover = "**/ses-mri-X*"

// Series is one series directory.
type Series struct {
	Name  string   // directory base name
	Path  string   // absolute path
	Files []string // sorted regular, non-hidden file names
}

// Skip records a directory entry that will not be mapped.
type Skip struct {
	Name   string
	Reason string
}

// Listing is the result of List.
type Listing struct {
	Root    string
	Series  []Series
	Skipped []Skip
}

// Options tunes List.
type Options struct {
	// Ignore holds doublestar patterns matched case-insensitively against
	// series directory names. nil selects DefaultIgnore; an empty non-nil
	// slice ignores nothing.
	Ignore []string
}

func (o Options) ignore() []string {
	if o.Ignore == nil {
		return DefaultIgnore
	}
	return o.Ignore
}

// ErrMalformedName marks directory names that cannot be mapped safely.
var ErrMalformedName = errors.New("malformed directory name")

// List returns the series directories directly under root, sorted by name.
func List(root string, opts Options) (Listing, error) {
	const op = "scan.List"

	abs, err := filepath.Abs(root)
	if err != nil {
		return Listing{}, errs.New(op, errs.KindNotFound, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return Listing{}, errs.New(op, errs.KindNotFound, root, errors.New("doesn't exist or is not a directory"))
	}

	patterns := opts.ignore()
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return Listing{}, errs.New(op, errs.KindInvalidConfig, "", fmt.Errorf("bad ignore pattern %q", p))
		}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return Listing{}, errs.New(op, errs.KindNotFound, root, err)
	}

	l := Listing{Root: abs}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() {
			l.Skipped = append(l.Skipped, Skip{Name: name, Reason: "not a directory"})
			continue
		}
		if err := CheckName(name); err != nil {
			l.Skipped = append(l.Skipped, Skip{Name: name, Reason: err.Error()})
			continue
		}
		if p, ok := matchAny(patterns, name); ok {
			l.Skipped = append(l.Skipped, Skip{Name: name, Reason: fmt.Sprintf("ignored by %q", p)})
			continue
		}

		s, err := readSeries(abs, name)
		if err != nil {
			return Listing{}, err
		}
		l.Series = append(l.Series, s)
	}

	sort.Slice(l.Series, func(i, j int) bool { return l.Series[i].Name < l.Series[j].Name })
	return l, nil
}

// CheckName rejects names with control characters or path separators.
func CheckName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrMalformedName)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return fmt.Errorf("%w: %q", ErrMalformedName, name)
		}
	}
	return nil
}

func readSeries(root, name string) (Series, error) {
	dir := filepath.Join(root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Series{}, errs.New("scan.List", errs.KindNotFound, dir, err)
	}

	s := Series{Name: name, Path: dir}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			return Series{}, errs.New("scan.List", errs.KindUnsorted, dir,
				fmt.Errorf("contains subdirectories (%s)", e.Name()))
		}
		if e.Type().IsRegular() {
			s.Files = append(s.Files, e.Name())
		}
	}
	sort.Strings(s.Files)
	return s, nil
}

func matchAny(patterns []string, name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(p), lower); ok {
			return p, true
		}
	}
	return "", false
}

// Discover returns the absolute paths of the directories under root that match
// pattern (doublestar syntax, DefaultDiscover when empty), sorted.
func Discover(root, pattern string) ([]string, error) {
	const op = "scan.Discover"
	if pattern == "" {
		pattern = DefaultDiscover
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errs.New(op, errs.KindInvalidConfig, "", fmt.Errorf("bad discover pattern %q", pattern))
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.New(op, errs.KindNotFound, root, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, errs.New(op, errs.KindNotFound, root, errors.New("doesn't exist or is not a directory"))
	}

	matches, err := doublestar.Glob(os.DirFS(abs), pattern)
	if err != nil {
		return nil, errs.New(op, errs.KindInvalidConfig, root, err)
	}

	var dirs []string
	for _, rel := range matches {
		full := filepath.Join(abs, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, full)
	}
	sort.Strings(dirs)
	return dirs, nil
}
