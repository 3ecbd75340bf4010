package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkAggregation verifies that every directory's size equals the sum of
// its children's sizes, recursively.
func checkAggregation(t *testing.T, n *Node) {
	t.Helper()
	if !n.IsDir {
		return
	}
	var total int64
	for _, c := range n.Children {
		checkAggregation(t, c)
		total += c.Size
	}
	assert.Equal(t, total, n.Size, "size of %q out of sync with children", n.Path())
}

// snapshot flattens a subtree into path -> size for comparisons.
func snapshot(n *Node) map[string]int64 {
	out := map[string]int64{n.Path(): n.Size}
	for _, c := range n.Children {
		for p, s := range snapshot(c) {
			out[p] = s
		}
	}
	return out
}

func findNode(t *testing.T, tree *Tree, parts ...string) *Node {
	t.Helper()
	node := tree.Root()
	for _, p := range parts {
		child, ok := node.Children[p]
		require.True(t, ok, "missing node %q under %q", p, node.Path())
		node = child
	}
	return node
}

func TestTreeInsertAggregates(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b/c.txt", 300)
	tree.Insert("a/d.txt", 100)

	assert.Equal(t, int64(400), tree.Root().Size)
	assert.Equal(t, int64(400), findNode(t, tree, "a").Size)
	assert.Equal(t, int64(300), findNode(t, tree, "a", "b").Size)
	checkAggregation(t, tree.Root())

	rootSorted := tree.Root().Sorted(bySize)
	require.Len(t, rootSorted, 1)
	assert.Equal(t, "a", rootSorted[0].Name)

	aSorted := findNode(t, tree, "a").Sorted(bySize)
	require.Len(t, aSorted, 2)
	assert.Equal(t, "b", aSorted[0].Name)
	assert.Equal(t, int64(300), aSorted[0].Size)
	assert.Equal(t, "d.txt", aSorted[1].Name)
	assert.Equal(t, int64(100), aSorted[1].Size)
}

func TestTreeInsertOverwritesLeaf(t *testing.T) {
	tree := NewTree()
	tree.Insert("x/y.bin", 100)
	tree.Insert("x/y.bin", 250)

	assert.Equal(t, int64(250), tree.Root().Size)
	assert.Equal(t, 1, tree.Root().Count())
	checkAggregation(t, tree.Root())
}

func TestTreeInsertKeyPrefixCollision(t *testing.T) {
	// "a" and "a/b.txt" can coexist in a bucket; the segment becomes a
	// directory and the bare object gives way.
	tree := NewTree()
	tree.Insert("a", 1)
	tree.Insert("a/b.txt", 2)

	a := findNode(t, tree, "a")
	assert.True(t, a.IsDir)
	assert.Empty(t, a.Key)
	assert.Equal(t, int64(2), tree.Root().Size)
	assert.Equal(t, []string{"a/b.txt"}, tree.Root().AllLeafKeys())
	checkAggregation(t, tree.Root())

	// deeper keys under the promoted segment keep working
	tree.Insert("a/c/d.txt", 4)
	assert.Equal(t, int64(6), tree.Root().Size)
	assert.Equal(t, 2, tree.Root().Count())
	checkAggregation(t, tree.Root())
}

func TestTreeInsertShorterKeyNeverClobbersDirectory(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b.txt", 2)
	tree.Insert("a", 1)

	a := findNode(t, tree, "a")
	assert.True(t, a.IsDir)
	assert.Equal(t, int64(2), a.Size, "aggregated size must survive the bare key")
	assert.Equal(t, int64(2), tree.Root().Size)
	assert.Equal(t, 1, tree.Root().Count())
	checkAggregation(t, tree.Root())
}

func TestTreeLeafInvariants(t *testing.T) {
	tree := NewTree()
	keys := []string{"a/b/c.txt", "a/b/d.txt", "a/e.txt", "f.txt", "g/h/i/deep.bin"}
	for i, k := range keys {
		tree.Insert(k, int64((i+1)*10))
	}
	checkAggregation(t, tree.Root())

	// count matches leaf key collection on every node
	var walk func(n *Node)
	walk = func(n *Node) {
		assert.Equal(t, len(n.AllLeafKeys()), n.Count(), "count mismatch at %q", n.Path())
		if !n.IsDir {
			assert.NotEmpty(t, n.Key, "leaf %q has no key", n.Path())
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root())

	assert.ElementsMatch(t,
		[]string{"a/b/c.txt", "a/b/d.txt"},
		findNode(t, tree, "a", "b").AllLeafKeys())
}

func TestTreeRemoveReinsertRoundTrip(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b/c.txt", 300)
	tree.Insert("a/d.txt", 100)
	tree.Insert("z.txt", 50)

	before := snapshot(tree.Root())

	b := findNode(t, tree, "a", "b")
	tree.Remove(b)
	assert.Equal(t, int64(150), tree.Root().Size)
	assert.NotContains(t, findNode(t, tree, "a").Children, "b")
	checkAggregation(t, tree.Root())

	tree.Insert("a/b/c.txt", 300)
	assert.Equal(t, before, snapshot(tree.Root()))
	checkAggregation(t, tree.Root())
}

func TestTreeRemoveKeyPrunesEmptyDirs(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b/c/only.txt", 10)
	tree.Insert("a/keep.txt", 5)

	tree.RemoveKey("a/b/c/only.txt")

	a := findNode(t, tree, "a")
	assert.NotContains(t, a.Children, "b", "emptied directory chain not pruned")
	assert.Equal(t, int64(5), tree.Root().Size)
	checkAggregation(t, tree.Root())

	// removing the last leaf never prunes the root
	tree.RemoveKey("a/keep.txt")
	assert.Empty(t, tree.Root().Children)
	assert.Equal(t, int64(0), tree.Root().Size)
}

func TestTreeRemoveKeyMissingIsNoop(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b.txt", 10)
	tree.RemoveKey("a/nope.txt")
	tree.RemoveKey("a") // directory, not a leaf
	assert.Equal(t, int64(10), tree.Root().Size)
	assert.Equal(t, 1, tree.Root().Count())
}

func TestTreeSortedTieBreak(t *testing.T) {
	tree := NewTree()
	tree.Insert("Bravo.txt", 100)
	tree.Insert("alpha.txt", 100)
	tree.Insert("charlie.txt", 100)
	tree.Insert("delta.txt", 400)

	bySizeOrder := tree.Root().Sorted(bySize)
	names := make([]string, 0, len(bySizeOrder))
	for _, n := range bySizeOrder {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"delta.txt", "alpha.txt", "Bravo.txt", "charlie.txt"}, names)

	byNameOrder := tree.Root().Sorted(byName)
	names = names[:0]
	for _, n := range byNameOrder {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"alpha.txt", "Bravo.txt", "charlie.txt", "delta.txt"}, names)
}

func TestTreeAttached(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b/c.txt", 1)
	b := findNode(t, tree, "a", "b")

	assert.True(t, tree.Attached(b))
	tree.Remove(b)
	assert.False(t, tree.Attached(b))
	assert.True(t, tree.Attached(tree.Root()))
}

func TestTreePath(t *testing.T) {
	tree := NewTree()
	tree.Insert("a/b/c.txt", 1)
	assert.Equal(t, "/", tree.Root().Path())
	assert.Equal(t, "/a/b", findNode(t, tree, "a", "b").Path())
	assert.Equal(t, "/a/b/c.txt", findNode(t, tree, "a", "b", "c.txt").Path())
}

func TestTreeManyInsertsStayConsistent(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 200; i++ {
		tree.Insert(fmt.Sprintf("dir%d/sub%d/file%d.dat", i%5, i%13, i), int64(i))
	}
	checkAggregation(t, tree.Root())
	assert.Equal(t, 200, tree.Root().Count())
	assert.Len(t, tree.Root().AllLeafKeys(), 200)
}
