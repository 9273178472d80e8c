// Package testrun converts a test-runner result tree into the hierarchical
// record attached to a test-run interval. Test and project names are never
// stored raw; only a one-way hash of each component is kept.
package testrun

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Result codes, one letter each, as serialized on a test-run record.
const (
	ResultUndefined = "U"
	ResultOK        = "O"
	ResultError     = "E"
	ResultFailure   = "F"
	ResultIgnored   = "I"
)

// Node is one node of the raw result tree supplied by the external test
// runner. A leaf carries the outcome flags; a container only carries
// children.
type Node struct {
	Name     string
	Passed   bool
	Ignored  bool
	Errored  bool
	Failed   bool
	Duration time.Duration
	Children []Node
}

// Leaf reports whether the node has no children.
func (n Node) Leaf() bool {
	return len(n.Children) == 0
}

// Execution mirrors one result-tree node in the interval model. Name
// components are stored as hashes only.
type Execution struct {
	ProjectHash string       `json:"project_hash,omitempty"`
	ClassHash   string       `json:"class_hash,omitempty"`
	MethodHash  string       `json:"method_hash,omitempty"`
	Result      string       `json:"result"`
	Duration    *float64     `json:"duration,omitempty"` // seconds, only if > 0
	Children    []*Execution `json:"children,omitempty"`
}

// TotalDuration sums the recorded durations across the whole tree.
func (e *Execution) TotalDuration() time.Duration {
	var total time.Duration
	if e.Duration != nil {
		total += time.Duration(*e.Duration * float64(time.Second))
	}
	for _, child := range e.Children {
		total += child.TotalDuration()
	}
	return total
}

// Hash returns the one-way hash recorded in place of a raw name.
func Hash(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

// Build converts the runner's result tree into an Execution tree. The root
// node aggregates the project identity. When the runner reports a single
// test class flat (the root's first child already a leaf), an extra wrapping
// level is inserted so the tree shape stays consistent with multi-class runs.
func Build(project string, root Node) *Execution {
	exec := newExecution(root)
	exec.ProjectHash = Hash(project)

	if len(root.Children) > 0 && root.Children[0].Leaf() {
		wrapped := newExecution(root)
		wrapped.Children = buildChildren(root, wrapped)
		exec.Children = []*Execution{wrapped}
		return exec
	}

	exec.Children = buildChildren(root, exec)
	return exec
}

// newExecution fills the result and duration of a single node.
func newExecution(n Node) *Execution {
	exec := &Execution{Result: determineResult(n)}
	if secs := n.Duration.Seconds(); secs > 0 {
		exec.Duration = &secs
	}
	return exec
}

func buildChildren(n Node, parent *Execution) []*Execution {
	children := make([]*Execution, 0, len(n.Children))
	for _, child := range n.Children {
		children = append(children, build(child, parent))
	}
	return children
}

func build(n Node, parent *Execution) *Execution {
	exec := newExecution(n)

	if n.Leaf() {
		// A leaf identifier is "Class.method"; split on the last separator
		// to recover the two components.
		if i := strings.LastIndex(n.Name, "."); i >= 0 {
			parent.ClassHash = Hash(n.Name[:i])
			exec.MethodHash = Hash(n.Name[i+1:])
		} else {
			exec.MethodHash = Hash(n.Name)
		}
		return exec
	}

	exec.ClassHash = Hash(n.Name)
	exec.Children = buildChildren(n, exec)
	return exec
}

// determineResult applies the outcome priority: a passed test is OK before
// anything else, then ignored, error, failure, undefined.
func determineResult(n Node) string {
	switch {
	case n.Passed:
		return ResultOK
	case n.Ignored:
		return ResultIgnored
	case n.Errored:
		return ResultError
	case n.Failed:
		return ResultFailure
	default:
		return ResultUndefined
	}
}
