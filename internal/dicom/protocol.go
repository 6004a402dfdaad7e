package dicom

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// Siemens scanners embed the measurement protocol as plain text ("ASCCONV")
// inside a private element of every image. The DICOM attributes alone are not
// enough to know how many repetitions or echoes were planned.
var (
	asccBegin   = []byte("### ASCCONV BEGIN")
	asccEnd     = []byte("### ASCCONV END ###")
	protoLineRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_.\[\]]*)[ \t]*=[ \t]*(.*?)[ \t]*$`)
)

// Protocol holds the key/value pairs of a Siemens ASCCONV block.
type Protocol struct {
	values map[string]string
}

// ParseProtocol extracts ASCCONV key/value pairs from raw file bytes.
// Only the text between the BEGIN and END markers is read; data without a
// BEGIN marker yields an empty Protocol.
func ParseProtocol(data []byte) Protocol {
	p := Protocol{values: make(map[string]string)}
	start := bytes.Index(data, asccBegin)
	if start < 0 {
		return p
	}
	data = data[start:]
	if end := bytes.Index(data, asccEnd); end >= 0 {
		data = data[:end]
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\x00")
		m := protoLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// first occurrence wins, like the scanner's own reader
		if _, seen := p.values[m[1]]; !seen {
			p.values[m[1]] = strings.Trim(m[2], `"`)
		}
	}
	return p
}

// Found reports whether any protocol line was read.
func (p Protocol) Found() bool {
	return len(p.values) > 0
}

// Value returns the raw value of key.
func (p Protocol) Value(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Int returns key as an integer. Hexadecimal values ("0x1") are accepted.
func (p Protocol) Int(key string) (int, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Repetitions returns lRepetitions, the zero-based number of planned repetitions.
// Siemens omits the key when it is 0.
func (p Protocol) Repetitions() int {
	n, _ := p.Int("lRepetitions")
	return n
}

// Contrasts returns lContrasts, the number of echoes. It defaults to 1.
func (p Protocol) Contrasts() int {
	if n, ok := p.Int("lContrasts"); ok && n > 0 {
		return n
	}
	return 1
}
