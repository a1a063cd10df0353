package graph

import (
	"fmt"
	"strings"
)

// Direction selects which edge set a traversal follows
type Direction string

const (
	Downstream Direction = "downstream" // forward edges, what the method calls
	Upstream   Direction = "upstream"   // reverse edges, what calls the method
)

// ParseDirection accepts "downstream"/"upstream" and the aliases
// "forward"/"out"/"callees" and "reverse"/"in"/"callers".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "downstream", "forward", "out", "callees":
		return Downstream, nil
	case "upstream", "reverse", "in", "callers":
		return Upstream, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// TreeNode is one step of a call tree. Cycle marks a method that already
// appears on the path from the root. Seen marks a method expanded elsewhere
// in the same tree. Neither carries children.
type TreeNode struct {
	Edge     EdgeInfo    `json:"edge"`
	Cycle    bool        `json:"cycle,omitempty"`
	Seen     bool        `json:"seen,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// treeStep is a method waiting to be expanded during CallTree.
type treeStep struct {
	method int
	depth  int
	parent *treeStep
	out    *[]*TreeNode
}

// onPath reports whether method is this step or one of its ancestors.
func (t *treeStep) onPath(method int) bool {
	for p := t; p != nil; p = p.parent {
		if p.method == method {
			return true
		}
	}
	return false
}

// CallTree expands the edges of a method up to maxDepth levels (0 means
// unlimited). Levels are expanded breadth first and each method is expanded
// once, at its shallowest position, so the tree holds at most one node per
// edge.
func (s *Store) CallTree(ref MethodRef, dir Direction, maxDepth int) ([]*TreeNode, error) {
	root, err := s.lookupMethod(ref.Class, ref.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}

	var tree []*TreeNode
	expanded := map[int]bool{root.Index: true}
	queue := []*treeStep{{method: root.Index, depth: 1, out: &tree}}
	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && step.depth > maxDepth {
			continue
		}

		edges := s.adjacent(s.methods[step.method], dir)
		children := make([]*TreeNode, 0, len(edges))
		for _, e := range edges {
			next, info := e.Callee, EdgeInfo{Type: string(e.Type)}
			if dir == Upstream {
				next, info.Type = e.Caller, Invert(e.Type)
			}
			ref := s.ref(next)
			info.Class, info.Signature = ref.Class, ref.Signature

			node := &TreeNode{Edge: info}
			switch {
			case step.onPath(next):
				node.Cycle = true
			case expanded[next]:
				node.Seen = len(s.adjacent(s.methods[next], dir)) > 0
			default:
				expanded[next] = true
				queue = append(queue, &treeStep{method: next, depth: step.depth + 1, parent: step, out: &node.Children})
			}
			children = append(children, node)
		}
		*step.out = children
	}
	return tree, nil
}

func (s *Store) adjacent(m *MethodNode, dir Direction) []CallEdge {
	if dir == Upstream {
		return m.Reverse
	}
	return m.Forward
}
