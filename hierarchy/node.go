package hierarchy

import (
	"go.uber.org/zap/zapcore"
)

// Node is one bucket on the path of a single entity. Every node but the
// last has exactly one child, the last one is the leaf bucket holding the entity.
type Node struct {
	Name  string
	Child *Node

	// Set on the leaf bucket only.
	ID      string
	Version string
}

func newChain(segments []string, id, version string) *Node {
	var (
		root *Node
		prev *Node
	)
	for _, s := range segments {
		n := &Node{Name: s}
		if prev == nil {
			root = n
		} else {
			prev.Child = n
		}
		prev = n
	}
	prev.ID = id
	prev.Version = version
	return root
}

// IsLeaf is true for the leaf bucket.
func (n *Node) IsLeaf() bool {
	return n.Child == nil
}

// Leaf returns the leaf bucket of the chain.
func (n *Node) Leaf() *Node {
	for n.Child != nil {
		n = n.Child
	}
	return n
}

// Segments returns names of the buckets from n down to the leaf.
func (n *Node) Segments() []string {
	var segments []string
	for c := n; c != nil; c = c.Child {
		segments = append(segments, c.Name)
	}
	return segments
}

// Path returns the path of the leaf bucket.
func (n *Node) Path() string {
	return JoinPath(n.Segments()...)
}

// MarshalLogObject implements logging encoder for Node.
func (n *Node) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("path", n.Path())
	leaf := n.Leaf()
	encoder.AddString("id", leaf.ID)
	encoder.AddString("version", leaf.Version)
	return nil
}
