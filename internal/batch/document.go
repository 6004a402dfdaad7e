// Package batch builds, writes and checks dcm2niibatch configuration documents.
//
// A document has two top-level keys: Options, the converter switches, and
// Files, one entry per series directory to convert:
//
//	Options:
//	  isGz: true
//	  ...
//	Files:
//	  - in_dir: /data/sub-x001/ses-mri-X1/T1_MPRAGE_0002
//	    out_dir: /data/out/sub-01/ses-01/anat
//	    filename: sub-01_ses-01_T1w
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicombids/internal/bids"
	"github.com/mrsinham/dicombids/internal/config"
	"github.com/mrsinham/dicombids/internal/errs"
)

// Options is the converter options block.
type Options struct {
	IsGz             bool `yaml:"isGz"`
	IsFlipY          bool `yaml:"isFlipY"`
	IsVerbose        bool `yaml:"isVerbose"`
	IsCreateBIDS     bool `yaml:"isCreateBIDS"`
	IsOnlySingleFile bool `yaml:"isOnlySingleFile"`
}

// OptionsFrom converts the options block of a project configuration.
// config.Default holds the converter defaults.
func OptionsFrom(o config.Options) Options {
	return Options(o)
}

// File maps one input series directory to an output file name.
type File struct {
	InDir    string `yaml:"in_dir"`
	OutDir   string `yaml:"out_dir"`
	Filename string `yaml:"filename"`
}

// Document is a dcm2niibatch configuration.
type Document struct {
	Options Options `yaml:"Options"`
	Files   []File  `yaml:"Files"`
}

// DocumentName returns "<sub>_<ses>.yaml", or "<sub>.yaml" without a session.
func DocumentName(n *bids.Namer) string {
	if ses := n.SessionTag(); ses != "" {
		return n.SubjectTag() + "_" + ses + ".yaml"
	}
	return n.SubjectTag() + ".yaml"
}

// Marshal renders the document as YAML with a two-space indent.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes docs to w as one YAML stream. Documents after the first are
// preceded by a "---" separator.
func Encode(w io.Writer, docs ...Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, doc := range docs {
		if doc.Files == nil {
			doc.Files = []File{}
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode batch document: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode batch document: %w", err)
	}
	return nil
}

// Write atomically replaces path with the rendered document.
func Write(path string, doc Document) error {
	const op = "batch.Write"

	data, err := Marshal(doc)
	if err != nil {
		return errs.New(op, errs.KindInvalidDocument, path, err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return errs.New(op, errs.KindUnwritable, path, fmt.Errorf("create pending file: %w", err))
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return errs.New(op, errs.KindUnwritable, path, fmt.Errorf("write document: %w", err))
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return errs.New(op, errs.KindUnwritable, path, fmt.Errorf("atomically replace document: %w", err))
	}
	return nil
}

// Load reads a document. Unknown keys are rejected.
func Load(path string) (Document, error) {
	const op = "batch.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errs.New(op, errs.KindNotFound, path, err)
	}
	return Parse(data, path)
}

// Parse decodes a single document; name is used in errors.
func Parse(data []byte, name string) (Document, error) {
	docs, err := ParseAll(data, name)
	if err != nil {
		return Document{}, err
	}
	if len(docs) > 1 {
		return Document{}, errs.New("batch.Parse", errs.KindInvalidDocument, name,
			fmt.Errorf("stream holds %d documents, expected one", len(docs)))
	}
	return docs[0], nil
}

// ParseAll decodes every document of a YAML stream, such as the output of
// Encode. Unknown keys are rejected.
func ParseAll(data []byte, name string) ([]Document, error) {
	const op = "batch.Parse"

	var docs []Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	for {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.New(op, errs.KindInvalidDocument, name, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errs.New(op, errs.KindInvalidDocument, name, errors.New("empty document"))
	}
	return docs, nil
}
