package output

import "github.com/eugenenazirov/node-allocator/internal/allocator"

// DefaultUnassignedLabel is printed in place of a node name for unassigned files.
const DefaultUnassignedLabel = "unassigned"

// Report is the serialisable view of an allocation result.
type Report struct {
	Assignments []AssignmentView `json:"assignments" yaml:"assignments"`
	Nodes       []NodeView       `json:"nodes" yaml:"nodes"`
	Summary     Summary          `json:"summary" yaml:"summary"`
}

// AssignmentView is one file and the node it was placed on.
type AssignmentView struct {
	Item     string `json:"item" yaml:"item"`
	Size     int64  `json:"size" yaml:"size"`
	Node     string `json:"node" yaml:"node"`
	Assigned bool   `json:"assigned" yaml:"assigned"`
}

// NodeView is the final load of one node.
type NodeView struct {
	Name        string  `json:"name" yaml:"name"`
	Capacity    int64   `json:"capacity" yaml:"capacity"`
	Occupied    int64   `json:"occupied" yaml:"occupied"`
	Items       int     `json:"items" yaml:"items"`
	Utilization float64 `json:"utilization" yaml:"utilization"`
}

// Summary aggregates a result.
type Summary struct {
	Items        int   `json:"items" yaml:"items"`
	Assigned     int   `json:"assigned" yaml:"assigned"`
	Unassigned   int   `json:"unassigned" yaml:"unassigned"`
	Nodes        int   `json:"nodes" yaml:"nodes"`
	TotalSize    int64 `json:"totalSize" yaml:"total_size"`
	AssignedSize int64 `json:"assignedSize" yaml:"assigned_size"`
	MeanSize     int64 `json:"meanSize" yaml:"mean_size"`
}

// NewReport builds a Report from res, rendering unassigned files with label.
func NewReport(res *allocator.Result, label string) Report {
	if label == "" {
		label = DefaultUnassignedLabel
	}

	rep := Report{
		Assignments: make([]AssignmentView, 0, res.Len()),
		Nodes:       make([]NodeView, 0, len(res.Containers)),
		Summary: Summary{
			Items:    res.Len(),
			Nodes:    len(res.Containers),
			MeanSize: res.Mean,
		},
	}

	for _, a := range res.Assignments {
		view := AssignmentView{Item: a.Item, Size: a.Size, Node: label}
		if a.Assigned() {
			view.Node = a.Container
			view.Assigned = true
			rep.Summary.Assigned++
			rep.Summary.AssignedSize += a.Size
		}
		rep.Summary.TotalSize += a.Size
		rep.Assignments = append(rep.Assignments, view)
	}
	rep.Summary.Unassigned = rep.Summary.Items - rep.Summary.Assigned

	for _, c := range res.Containers {
		rep.Nodes = append(rep.Nodes, NodeView{
			Name:        c.Name,
			Capacity:    c.Capacity,
			Occupied:    c.Occupied,
			Items:       c.Items,
			Utilization: utilization(c.Occupied, c.Capacity),
		})
	}
	return rep
}

func utilization(occupied, capacity int64) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(occupied) / float64(capacity)
}
