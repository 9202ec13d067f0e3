// Package records reads the two-column text files describing files and nodes:
//
//	# name      size
//	tom.dat     1024
//	jerry.dat   16553
//
// Lines starting with '#' and blank lines are ignored. Every other line must
// hold a name and a non-negative integer separated by whitespace.
package records

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/spf13/afero"

	"github.com/eugenenazirov/node-allocator/internal/allocator"
)

const maxLineBytes = 1 << 20

var (
	commentLine = regexp.MustCompile(`^\s*(#.*)?$`)
	recordLine  = regexp.MustCompile(`^\s*(\S+)\s+([0-9]+)\s*$`)
)

// Record is a single name/value line.
type Record struct {
	Name  string
	Value int64
	Line  int
}

// Parse reads records from r, skipping comments and blank lines.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []Record
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if commentLine.MatchString(text) {
			continue
		}

		m := recordLine.FindStringSubmatch(text)
		if m == nil {
			return nil, &ParseError{Line: line, Text: text, Err: ErrMalformedRecord}
		}
		value, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, &ParseError{Line: line, Text: text, Err: ErrValueRange}
		}
		out = append(out, Record{Name: m[1], Value: value, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return out, nil
}

// Load opens path on fs and parses its records. Parse errors carry the path.
func Load(fs afero.Fs, path string) ([]Record, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := Parse(f)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

// ToItems converts records into allocator items, the value being the item size.
func ToItems(recs []Record) []allocator.Item {
	out := make([]allocator.Item, 0, len(recs))
	for _, r := range recs {
		out = append(out, allocator.Item{Name: r.Name, Size: r.Value})
	}
	return out
}

// ToContainers converts records into allocator containers, the value being the capacity.
func ToContainers(recs []Record) []allocator.Container {
	out := make([]allocator.Container, 0, len(recs))
	for _, r := range recs {
		out = append(out, allocator.Container{Name: r.Name, Capacity: r.Value})
	}
	return out
}
