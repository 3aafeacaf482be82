// Package tagreader provides defensive, typed access to DICOM data
// element values. DICOM pads textual values with trailing space or NUL to
// even length, vendors emit malformed numerics, and a missing tag is
// routine rather than exceptional; every accessor here degrades to a
// caller-supplied default instead of failing.
package tagreader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Source is the tag lookup contract consumed by the metadata builder.
// The concrete implementation wraps a parsed dataset; tests substitute a
// map-backed fake.
type Source interface {
	// Value returns the trimmed textual value of the (group, element)
	// data element, or "" when no dataset is loaded, the tag is absent,
	// or the byte value cannot be decoded.
	Value(group, element uint16) string
}

// Reader wraps a parsed DICOM dataset for tag access.
type Reader struct {
	path string
	ds   *dicom.Dataset
}

// Open parses the file at path as DICOM. Parse failures are fatal to this
// file's ingestion and are returned to the caller.
func Open(path string) (*Reader, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DICOM file %s: %w", path, err)
	}
	return &Reader{path: path, ds: &ds}, nil
}

// Path returns the source file path.
func (r *Reader) Path() string {
	return r.path
}

// HasDataset reports whether a dataset is loaded.
func (r *Reader) HasDataset() bool {
	return r != nil && r.ds != nil
}

// Dataset exposes the underlying parsed dataset for pixel-data access.
func (r *Reader) Dataset() *dicom.Dataset {
	return r.ds
}

// Value implements Source.
func (r *Reader) Value(group, element uint16) (out string) {
	if !r.HasDataset() {
		return ""
	}
	// The dicom library can panic on corrupt element payloads; a bad
	// element must not abort ingestion of the rest of the file.
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn().
				Str("path", r.path).
				Str("tag", fmt.Sprintf("(%04X,%04X)", group, element)).
				Interface("error", rec).
				Msg("Failed to decode tag value")
			out = ""
		}
	}()

	elem, err := r.ds.FindElementByTag(tag.Tag{Group: group, Element: element})
	if err != nil || elem == nil || elem.Value == nil {
		return ""
	}

	switch v := elem.Value.GetValue().(type) {
	case []string:
		parts := make([]string, 0, len(v))
		for _, s := range v {
			parts = append(parts, Trim(s))
		}
		// Re-join multi-valued elements with the DICOM value delimiter
		// so callers can index components uniformly.
		return Trim(strings.Join(parts, `\`))
	case []int:
		parts := make([]string, 0, len(v))
		for _, n := range v {
			parts = append(parts, strconv.Itoa(n))
		}
		return strings.Join(parts, `\`)
	case []float64:
		parts := make([]string, 0, len(v))
		for _, f := range v {
			parts = append(parts, strconv.FormatFloat(f, 'g', -1, 64))
		}
		return strings.Join(parts, `\`)
	case string:
		return Trim(v)
	case nil:
		return ""
	}
	return Trim(elem.Value.String())
}

// Trim removes NUL bytes and surrounding whitespace from a raw element
// value.
func Trim(s string) string {
	return strings.Trim(s, "\x00 \t\r\n")
}

// ParseInt parses a DICOM integer string, returning def on any failure.
func ParseInt(s string, def int) int {
	s = Trim(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Numeric returns the index-th component of a (possibly multi-valued,
// backslash-delimited) numeric element, or def when the tag is missing,
// the component is absent, or it does not parse.
func Numeric(src Source, group, element uint16, def float64, index int) float64 {
	raw := src.Value(group, element)
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, `\`)
	if index < 0 || index >= len(parts) {
		return def
	}
	f, err := strconv.ParseFloat(Trim(parts[index]), 64)
	if err != nil {
		return def
	}
	return f
}
