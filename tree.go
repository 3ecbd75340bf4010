package main

import (
	"sort"
	"strings"
)

// Node is one segment of the bucket's key namespace. Directory nodes are
// synthetic aggregation points whose size is always the sum of their
// children; leaf nodes are backed by a real stored object and carry its
// full key. The parent pointer is a non-owning back-reference used only
// for upward traversal.
type Node struct {
	Name     string
	IsDir    bool
	Size     int64
	Key      string
	Children map[string]*Node
	Parent   *Node
}

// Sorted returns the node's immediate children ordered by size descending
// (ties broken by name, case-insensitive) or by name ascending.
func (n *Node) Sorted(by sortOrder) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c)
	}
	sort.Slice(children, func(i, j int) bool {
		if by == bySize && children[i].Size != children[j].Size {
			return children[i].Size > children[j].Size
		}
		return strings.ToLower(children[i].Name) < strings.ToLower(children[j].Name)
	})
	return children
}

// AllLeafKeys collects the key of every real object under the node.
// Directories contribute nothing themselves.
func (n *Node) AllLeafKeys() []string {
	if !n.IsDir {
		if n.Key == "" {
			return nil
		}
		return []string{n.Key}
	}
	var keys []string
	for _, c := range n.Children {
		keys = append(keys, c.AllLeafKeys()...)
	}
	return keys
}

// Count returns the number of objects under the node, 1 for a leaf.
func (n *Node) Count() int {
	if !n.IsDir {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Path returns the node's "/"-joined path from the root.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}
	if len(parts) == 0 {
		return "/"
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

type sortOrder int

const (
	bySize sortOrder = iota
	byName
)

// Tree indexes a bucket's keys as a directory hierarchy with aggregated
// sizes. It is not safe for concurrent mutation; the scanner serializes
// inserts with its own lock and the browse loop is single-threaded.
type Tree struct {
	root *Node
}

func NewTree() *Tree {
	return &Tree{root: &Node{Name: "/", IsDir: true, Children: map[string]*Node{}}}
}

func (t *Tree) Root() *Node { return t.root }

// Insert adds or overwrites the leaf for key and re-sums every ancestor.
// Re-inserting an existing key replaces its size (last write wins), which
// keeps duplicate listings idempotent.
func (t *Tree) Insert(key string, size int64) {
	parts := splitKey(key)
	if len(parts) == 0 {
		return
	}
	node := t.root
	for i, part := range parts {
		leaf := i == len(parts)-1
		child, ok := node.Children[part]
		if !ok {
			child = &Node{Name: part, IsDir: !leaf, Parent: node}
			if !leaf {
				child.Children = map[string]*Node{}
			}
			node.Children[part] = child
		} else if !leaf && !child.IsDir {
			// One object's key may be a path prefix of another ("a" and
			// "a/b.txt" can coexist in a bucket). The segment has to become
			// a directory to hold the deeper key; the bare object gives way.
			child.IsDir = true
			child.Key = ""
			child.Children = map[string]*Node{}
		}
		if leaf && !child.IsDir {
			child.Size = size
			child.Key = key
		}
		node = child
	}
	resum(node.Parent)
}

// Remove detaches a subtree from its parent and re-sums the ancestors.
func (t *Tree) Remove(node *Node) {
	parent := node.Parent
	if parent == nil || parent.Children[node.Name] != node {
		return
	}
	delete(parent.Children, node.Name)
	resum(parent)
}

// RemoveKey removes the leaf for key, prunes ancestor directories that
// become empty (never the root) and re-sums to the root.
func (t *Tree) RemoveKey(key string) {
	node := t.root
	for _, part := range splitKey(key) {
		child, ok := node.Children[part]
		if !ok {
			return
		}
		node = child
	}
	if node.IsDir {
		return
	}
	parent := node.Parent
	delete(parent.Children, node.Name)
	for parent != t.root && len(parent.Children) == 0 {
		delete(parent.Parent.Children, parent.Name)
		parent = parent.Parent
	}
	resum(parent)
}

// Attached reports whether the node is still reachable from the root.
func (t *Tree) Attached(n *Node) bool {
	cur := n
	for cur.Parent != nil {
		if cur.Parent.Children[cur.Name] != cur {
			return false
		}
		cur = cur.Parent
	}
	return cur == t.root
}

// resum recomputes each directory's size as the sum of its children, from
// n up to the root. A full re-sum per level avoids compounding drift that
// a subtractive delta could accumulate.
func resum(n *Node) {
	for ; n != nil; n = n.Parent {
		var total int64
		for _, c := range n.Children {
			total += c.Size
		}
		n.Size = total
	}
}

func splitKey(key string) []string {
	var parts []string
	for _, p := range strings.Split(key, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
