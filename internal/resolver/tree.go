package resolver

import "github.com/papyrus-app/papyrus/internal/document"

// node is one merged step of the requested path set. Paths sharing a
// prefix collapse into a single node so "posts" and "posts.author" cost
// one posts lookup; declaration order of first appearance is kept for
// deterministic output.
type node struct {
	field    string
	project  []string
	all      bool // at least one path asked for the full target
	children []*node
}

func buildTree(paths []document.Path) []*node {
	var roots []*node
	for _, p := range paths {
		insert(&roots, p.Segments)
	}
	return roots
}

func insert(nodes *[]*node, segs []document.Segment) {
	if len(segs) == 0 {
		return
	}
	seg := segs[0]
	var n *node
	for _, existing := range *nodes {
		if existing.field == seg.Field {
			n = existing
			break
		}
	}
	if n == nil {
		n = &node{field: seg.Field}
		if len(seg.Project) == 0 {
			n.all = true
		} else {
			n.project = append(n.project, seg.Project...)
		}
		*nodes = append(*nodes, n)
	} else {
		n.merge(seg)
	}
	insert(&n.children, segs[1:])
}

// merge widens the node's projection with another request for the same
// field. Any request without a projection wins.
func (n *node) merge(seg document.Segment) {
	if n.all {
		return
	}
	if len(seg.Project) == 0 {
		n.all = true
		n.project = nil
		return
	}
	have := make(map[string]struct{}, len(n.project))
	for _, f := range n.project {
		have[f] = struct{}{}
	}
	for _, f := range seg.Project {
		if _, ok := have[f]; !ok {
			n.project = append(n.project, f)
		}
	}
}

// projectDoc copies the target document according to the node's
// projection. The identifier and any fields needed by nested nodes are
// always retained so deeper expansion still works.
func (n *node) projectDoc(target document.Document) document.Document {
	if n.all || len(n.project) == 0 {
		return target.Clone()
	}
	picked := make(document.Document, len(n.project)+len(n.children)+1)
	if v, ok := target[document.FieldID]; ok {
		picked[document.FieldID] = v
	}
	for _, f := range n.project {
		if v, ok := target[f]; ok {
			picked[f] = v
		}
	}
	for _, c := range n.children {
		if v, ok := target[c.field]; ok {
			picked[c.field] = v
		}
	}
	return picked.Clone()
}
