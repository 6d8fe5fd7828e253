// Package ballot loads the ballot box records produced by the upstream
// scraper and fetches their tally-sheet images.
//
// Each input file holds the submissions of one school as a JSON array:
//
//	[{"id": 123456, "cm_result": {"image_url": "https://..."}}, ...]
//
// Ids may be numbers or strings; cm_result may be null.
package ballot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ErrMissingImageReference is returned for records without an image URL
var ErrMissingImageReference = errors.New("missing image reference")

// Record is one ballot box as listed by the upstream source
type Record struct {
	ID       string // Ballot box id, joins every artifact of the box
	ImageURL string // Empty when the sheet was never uploaded
	Source   string // File the record was read from
}

// ImageRef returns the image URL or ErrMissingImageReference
func (r Record) ImageRef() (string, error) {
	if strings.TrimSpace(r.ImageURL) == "" {
		return "", fmt.Errorf("ballot box %s: %w", r.ID, ErrMissingImageReference)
	}
	return r.ImageURL, nil
}

type rawRecord struct {
	ID       any `json:"id"`
	CMResult *struct {
		ImageURL string `json:"image_url"`
	} `json:"cm_result"`
}

// Parse decodes one input file. Records without an id are named after the
// file stem and their position, so they stay distinct.
func Parse(data []byte, source string) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []rawRecord
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	out := make([]Record, 0, len(raw))
	for i, r := range raw {
		id, err := cast.ToStringE(r.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: invalid id %v: %w", source, i, r.ID, err)
		}
		id = strings.TrimSpace(id)
		if id == "" {
			id = fmt.Sprintf("%s_%d", stem, i+1)
		}
		if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
			return nil, fmt.Errorf("%s: record %d: id %q is not a valid path segment", source, i, id)
		}

		rec := Record{ID: id, Source: source}
		if r.CMResult != nil {
			rec.ImageURL = strings.TrimSpace(r.CMResult.ImageURL)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadFile reads and parses one input file
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadDir reads every *.json file of dir in name order. Duplicate ids keep
// their first occurrence.
func LoadDir(dir string) ([]Record, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(paths)

	seen := make(map[string]bool)
	var out []Record
	for _, p := range paths {
		recs, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}
