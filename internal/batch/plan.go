package batch

import (
	"fmt"
	"path/filepath"

	"github.com/mrsinham/dicombids/internal/bids"
	"github.com/mrsinham/dicombids/internal/classify"
	"github.com/mrsinham/dicombids/internal/scan"
)

// Entry is a mapped series.
type Entry struct {
	Series         scan.Series
	Classification classify.Classification
	File           File
}

// Exclusion is a series left out of the document.
type Exclusion struct {
	Series string
	Reason string
}

// ReasonDeselected marks series removed during review.
const ReasonDeselected = "deselected"

type candidate struct {
	series scan.Series
	class  classify.Classification
	reason string
}

// Plan is the mapping of one session directory: the entries of the document
// and the series that were left out.
type Plan struct {
	Input      string
	OutputRoot string
	Namer      *bids.Namer
	Entries    []Entry
	Excluded   []Exclusion

	candidates []candidate
	skipped    []scan.Skip
}

// Build classifies every listed series and names the mapped ones.
// outputRoot is made absolute; entries follow the listing order.
func Build(namer *bids.Namer, outputRoot string, l scan.Listing, c *classify.Classifier) (*Plan, error) {
	out, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}

	p := &Plan{Input: l.Root, OutputRoot: out, Namer: namer, skipped: l.Skipped}
	for _, s := range l.Series {
		p.candidates = append(p.candidates, candidate{series: s, class: c.Classify(s)})
	}
	p.assign()
	return p, nil
}

// SetNamer renames every entry for another subject or session.
func (p *Plan) SetNamer(n *bids.Namer) {
	p.Namer = n
	p.assign()
}

// Deselect leaves the named series out of the document.
func (p *Plan) Deselect(series string) {
	for i := range p.candidates {
		if p.candidates[i].series.Name == series && !p.candidates[i].class.Excluded() {
			p.candidates[i].reason = ReasonDeselected
		}
	}
	p.assign()
}

// Document returns the batch document of the plan.
func (p *Plan) Document(opts Options) Document {
	doc := Document{Options: opts, Files: make([]File, 0, len(p.Entries))}
	for _, e := range p.Entries {
		doc.Files = append(doc.Files, e.File)
	}
	return doc
}

// Name returns the document file name of the plan.
func (p *Plan) Name() string {
	return DocumentName(p.Namer)
}

func (p *Plan) assign() {
	p.Entries = p.Entries[:0]
	p.Excluded = p.Excluded[:0]
	for _, s := range p.skipped {
		p.Excluded = append(p.Excluded, Exclusion{Series: s.Name, Reason: s.Reason})
	}

	for _, c := range p.candidates {
		switch {
		case c.class.Excluded():
			p.Excluded = append(p.Excluded, Exclusion{Series: c.series.Name, Reason: c.class.Reason})
			continue
		case c.reason != "":
			p.Excluded = append(p.Excluded, Exclusion{Series: c.series.Name, Reason: c.reason})
			continue
		}
		f, err := p.file(c.series, c.class)
		if err != nil {
			p.Excluded = append(p.Excluded, Exclusion{Series: c.series.Name, Reason: err.Error()})
			continue
		}
		p.Entries = append(p.Entries, Entry{Series: c.series, Classification: c.class, File: f})
	}

	p.disambiguate()
}

func (p *Plan) file(s scan.Series, cl classify.Classification) (File, error) {
	n, err := p.Namer.Merge(cl.Entities())
	if err != nil {
		return File{}, err
	}
	name, err := n.Name(cl.Datatype, cl.Suffix)
	if err != nil {
		return File{}, err
	}
	return File{
		InDir:    s.Path,
		OutDir:   filepath.Join(p.OutputRoot, filepath.FromSlash(p.Namer.Dir()), string(cl.Datatype)),
		Filename: name,
	}, nil
}

type fileKey struct{ dir, name string }

// disambiguate gives colliding entries without a run a run index in listing
// order. Entries that still collide are excluded.
func (p *Plan) disambiguate() {
	groups := make(map[fileKey][]int)
	for i, e := range p.Entries {
		k := fileKey{e.File.OutDir, e.File.Filename}
		groups[k] = append(groups[k], i)
	}
	for _, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		for run, i := range idx {
			e := &p.Entries[i]
			if e.Classification.Run != 0 {
				continue
			}
			cl := e.Classification
			cl.Run = run + 1
			if f, err := p.file(e.Series, cl); err == nil {
				e.Classification, e.File = cl, f
			}
		}
	}

	seen := make(map[fileKey]string)
	kept := p.Entries[:0]
	for _, e := range p.Entries {
		k := fileKey{e.File.OutDir, e.File.Filename}
		if first, dup := seen[k]; dup {
			p.Excluded = append(p.Excluded, Exclusion{Series: e.Series.Name, Reason: "same output as " + first})
			continue
		}
		seen[k] = e.Series.Name
		kept = append(kept, e)
	}
	p.Entries = kept
}
