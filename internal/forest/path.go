package forest

// Path addresses a node structurally: the sequence of child indices from
// the root list down to the node. Mutations navigate by path against a
// freshly loaded forest rather than holding live references across a
// load-mutate-persist cycle.
type Path []int

// Depth is the node's reply depth: a root-level node (path length 1) has
// depth 0.
func (p Path) Depth() int {
	return len(p) - 1
}

// Find searches the forest depth-first in pre-order: each node is checked
// before its replies, siblings in insertion order. Ids are unique within a
// forest, so the first match is the only match. The boolean is false when
// the id is not present, which is an expected outcome, not an error.
func Find(f Forest, id string) (*Comment, Path, bool) {
	for i, c := range f {
		if c.ID == id {
			return c, Path{i}, true
		}
		if node, p, ok := Find(c.Replies, id); ok {
			return node, append(Path{i}, p...), true
		}
	}
	return nil, nil, false
}

// NodeAt resolves a path against the forest. It returns nil if the path
// runs off the tree.
func NodeAt(f Forest, p Path) *Comment {
	if len(p) == 0 {
		return nil
	}
	cur := f
	var node *Comment
	for _, idx := range p {
		if idx < 0 || idx >= len(cur) {
			return nil
		}
		node = cur[idx]
		cur = node.Replies
	}
	return node
}

// RemoveAt removes the node addressed by path, together with its entire
// reply subtree, and returns the resulting forest. The path must have been
// produced by Find against the same forest.
func RemoveAt(f Forest, p Path) Forest {
	if len(p) == 0 {
		return f
	}
	if len(p) == 1 {
		i := p[0]
		if i < 0 || i >= len(f) {
			return f
		}
		return append(f[:i], f[i+1:]...)
	}
	parent := NodeAt(f, p[:len(p)-1])
	i := p[len(p)-1]
	if parent == nil || i < 0 || i >= len(parent.Replies) {
		return f
	}
	parent.Replies = append(parent.Replies[:i], parent.Replies[i+1:]...)
	return f
}
