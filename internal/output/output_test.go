package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/node-allocator/internal/allocator"
)

func sampleResult(t *testing.T) *allocator.Result {
	t.Helper()

	res, err := allocator.Run(
		[]allocator.Item{{Name: "a", Size: 10}, {Name: "b", Size: 20}, {Name: "c", Size: 30}},
		[]allocator.Container{{Name: "X", Capacity: 25}, {Name: "Y", Capacity: 35}},
	)
	require.NoError(t, err)
	return res
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), Options{Format: FormatText}))
	require.Equal(t, "a Y\nc unassigned\nb Y\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, sampleResult(t), Options{UnassignedLabel: "NULL"}))
	require.Equal(t, "a Y\nc NULL\nb Y\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), Options{Format: FormatJSON}))

	var rep Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	require.Equal(t, []AssignmentView{
		{Item: "a", Size: 10, Node: "Y", Assigned: true},
		{Item: "c", Size: 30, Node: "unassigned"},
		{Item: "b", Size: 20, Node: "Y", Assigned: true},
	}, rep.Assignments)
	require.Equal(t, Summary{
		Items:        3,
		Assigned:     2,
		Unassigned:   1,
		Nodes:        2,
		TotalSize:    60,
		AssignedSize: 30,
		MeanSize:     30,
	}, rep.Summary)
	require.Len(t, rep.Nodes, 2)
	require.InDelta(t, 30.0/35.0, rep.Nodes[1].Utilization, 1e-9)
	require.Zero(t, rep.Nodes[0].Utilization)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), Options{Format: FormatYAML}))
	require.Contains(t, buf.String(), "total_size: 60")

	var rep Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rep))
	require.Equal(t, 2, rep.Summary.Assigned)
	require.Equal(t, "Y", rep.Assignments[0].Node)
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(t), Options{Format: FormatTable}))

	out := buf.String()
	require.Contains(t, strings.ToUpper(out), "FILE")
	for _, want := range []string{"unassigned", "85.7%", "2 of 3 files assigned (30 of 60), 1 unassigned, mean 30 per node"} {
		require.Contains(t, out, want)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, sampleResult(t), Options{Format: "xml"})
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Format{
		"":       FormatText,
		"text":   FormatText,
		" JSON ": FormatJSON,
		"yaml":   FormatYAML,
		"Table":  FormatTable,
	} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}

	_, err := ParseFormat("csv")
	require.ErrorIs(t, err, ErrUnknownFormat)
	require.Contains(t, err.Error(), "text, json, yaml, table")
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/result.txt", []byte(strings.Repeat("stale\n", 10)), 0o644))

	require.NoError(t, WriteFile(fs, "/out/result.txt", sampleResult(t), Options{Format: FormatText, UnassignedLabel: "NULL"}))

	data, err := afero.ReadFile(fs, "/out/result.txt")
	require.NoError(t, err)
	require.Equal(t, "a Y\nc NULL\nb Y\n", string(data))
}

func TestNewReportEmptyResult(t *testing.T) {
	t.Parallel()

	res, err := allocator.New().Allocate()
	require.NoError(t, err)

	rep := NewReport(res, "")
	require.Empty(t, rep.Assignments)
	require.Empty(t, rep.Nodes)
	require.Equal(t, Summary{}, rep.Summary)
}
