package bids

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrMalformedName is returned by ParseFilename for names that do not follow the BIDS grammar.
var ErrMalformedName = errors.New("malformed BIDS file name")

// Pair is one parsed "<key>-<value>" element of a name.
type Pair struct {
	Key   string
	Value string
}

// ParsedName is a BIDS file name split into its parts.
type ParsedName struct {
	Pairs  []Pair
	Suffix string
}

// Get returns the value stored for key.
func (p ParsedName) Get(key string) (string, bool) {
	for _, kv := range p.Pairs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// ParseFilename splits a name such as "sub-01_ses-01_task-rest_bold" into entities and suffix.
// Entities must be known, in canonical order, unique, with alphanumeric values;
// the first one must be the subject.
func ParseFilename(name string) (ParsedName, error) {
	var parsed ParsedName
	if name == "" {
		return parsed, fmt.Errorf("%w: empty name", ErrMalformedName)
	}

	chunks := strings.Split(name, "_")
	if len(chunks) < 2 {
		return parsed, fmt.Errorf("%w: %q has no suffix", ErrMalformedName, name)
	}

	parsed.Suffix = chunks[len(chunks)-1]
	if parsed.Suffix == "" || CheckLabel(parsed.Suffix) != nil {
		return parsed, fmt.Errorf("%w: %q has an invalid suffix", ErrMalformedName, name)
	}

	last := -1
	for _, chunk := range chunks[:len(chunks)-1] {
		key, value, ok := strings.Cut(chunk, "-")
		if !ok || value == "" {
			return parsed, fmt.Errorf("%w: %q is not a key-value entity", ErrMalformedName, chunk)
		}
		pos := slices.Index(EntityOrder, key)
		if pos < 0 {
			return parsed, fmt.Errorf("%w: unknown entity %q", ErrMalformedName, key)
		}
		if pos <= last {
			return parsed, fmt.Errorf("%w: entity %q is out of order or repeated", ErrMalformedName, key)
		}
		if CheckLabel(value) != nil {
			return parsed, fmt.Errorf("%w: entity %q has a non-alphanumeric value %q", ErrMalformedName, key, value)
		}
		last = pos
		parsed.Pairs = append(parsed.Pairs, Pair{Key: key, Value: value})
	}

	if len(parsed.Pairs) == 0 || parsed.Pairs[0].Key != KeySubject {
		return parsed, fmt.Errorf("%w: %q does not start with a subject", ErrMalformedName, name)
	}
	return parsed, nil
}
