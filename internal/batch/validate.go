package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrsinham/dicombids/internal/bids"
)

// Problem is one issue found in a document. Index is -1 for document-wide problems.
type Problem struct {
	Index   int
	Field   string
	Message string
}

func (p Problem) String() string {
	if p.Index < 0 {
		return p.Message
	}
	return fmt.Sprintf("Files[%d].%s: %s", p.Index, p.Field, p.Message)
}

// Validate checks that every entry points at an existing input directory,
// carries a BIDS file name whose suffix fits its datatype directory and
// whose subject and session match the output path, and that no two entries
// share an output file.
func Validate(doc Document) []Problem {
	var problems []Problem
	add := func(i int, field, format string, args ...any) {
		problems = append(problems, Problem{Index: i, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(doc.Files) == 0 {
		add(-1, "", "document has no Files entries")
	}

	seen := make(map[fileKey]int)
	for i, f := range doc.Files {
		switch info, err := os.Stat(f.InDir); {
		case f.InDir == "":
			add(i, "in_dir", "is empty")
		case err != nil:
			add(i, "in_dir", "%s does not exist", f.InDir)
		case !info.IsDir():
			add(i, "in_dir", "%s is not a directory", f.InDir)
		}

		if f.OutDir == "" {
			add(i, "out_dir", "is empty")
			continue
		}
		parsed, err := bids.ParseFilename(f.Filename)
		if err != nil {
			add(i, "filename", "%v", err)
			continue
		}

		dt, ok := bids.ParseDatatype(filepath.Base(f.OutDir))
		if !ok {
			add(i, "out_dir", "%s does not end in a datatype directory", f.OutDir)
			continue
		}
		if !dt.AllowsSuffix(parsed.Suffix) {
			add(i, "filename", "suffix %q is not valid for %s", parsed.Suffix, dt)
		} else if dt == bids.Func {
			if _, ok := parsed.Get(bids.KeyTask); !ok {
				add(i, "filename", "functional data require a task entity")
			}
		}

		parent := filepath.Dir(f.OutDir)
		if ses, ok := parsed.Get(bids.KeySession); ok {
			if got := filepath.Base(parent); got != bids.KeySession+"-"+ses {
				add(i, "out_dir", "session directory %q does not match %s-%s", got, bids.KeySession, ses)
			}
			parent = filepath.Dir(parent)
		}
		sub, _ := parsed.Get(bids.KeySubject)
		if got := filepath.Base(parent); got != bids.KeySubject+"-"+sub {
			add(i, "out_dir", "subject directory %q does not match %s-%s", got, bids.KeySubject, sub)
		}

		k := fileKey{filepath.Clean(f.OutDir), f.Filename}
		if first, dup := seen[k]; dup {
			add(i, "filename", "duplicates Files[%d]", first)
			continue
		}
		seen[k] = i
	}
	return problems
}
