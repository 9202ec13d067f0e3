// Package output renders allocation results as plain "<file> <node>" lines,
// JSON, YAML or human readable tables, to any writer or to a file.
package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/node-allocator/internal/allocator"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML), string(FormatTable)}
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w %q (supported: %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
}

// Options controls rendering.
type Options struct {
	Format          Format
	UnassignedLabel string
}

// Write renders res to w.
func Write(w io.Writer, res *allocator.Result, opts Options) error {
	rep := NewReport(res, opts.UnassignedLabel)

	switch opts.Format {
	case FormatText, "":
		return writeText(w, rep)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	case FormatTable:
		return writeTable(w, rep)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, opts.Format)
	}
}

// WriteFile renders res into path on fs, replacing any previous content.
func WriteFile(fs afero.Fs, path string, res *allocator.Result, opts Options) error {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := Write(f, res, opts); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeText(w io.Writer, rep Report) error {
	bw := bufio.NewWriter(w)
	for _, a := range rep.Assignments {
		if _, err := fmt.Fprintf(bw, "%s %s\n", a.Item, a.Node); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeTable(w io.Writer, rep Report) error {
	files := tablewriter.NewWriter(w)
	files.Header("File", "Size", "Node")
	for _, a := range rep.Assignments {
		if err := files.Append([]string{a.Item, humanize.Comma(a.Size), a.Node}); err != nil {
			return fmt.Errorf("append file row: %w", err)
		}
	}
	if err := files.Render(); err != nil {
		return fmt.Errorf("render files table: %w", err)
	}

	nodes := tablewriter.NewWriter(w)
	nodes.Header("Node", "Capacity", "Occupied", "Files", "Used")
	for _, n := range rep.Nodes {
		row := []string{
			n.Name,
			humanize.Comma(n.Capacity),
			humanize.Comma(n.Occupied),
			strconv.Itoa(n.Items),
			strconv.FormatFloat(n.Utilization*100, 'f', 1, 64) + "%",
		}
		if err := nodes.Append(row); err != nil {
			return fmt.Errorf("append node row: %w", err)
		}
	}
	if err := nodes.Render(); err != nil {
		return fmt.Errorf("render nodes table: %w", err)
	}

	_, err := fmt.Fprintf(w, "%s of %s files assigned (%s of %s), %s unassigned, mean %s per node\n",
		humanize.Comma(int64(rep.Summary.Assigned)),
		humanize.Comma(int64(rep.Summary.Items)),
		humanize.Comma(rep.Summary.AssignedSize),
		humanize.Comma(rep.Summary.TotalSize),
		humanize.Comma(int64(rep.Summary.Unassigned)),
		humanize.Comma(rep.Summary.MeanSize),
	)
	return err
}
