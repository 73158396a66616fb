package avltree

import (
	"math/rand"
	"sort"
	"testing"
)

func cmpInt(a, b int) int { return a - b }

func TestPutGetRemove(t *testing.T) {
	tr := New[int, string](cmpInt)
	if _, ok := tr.Get(1); ok {
		t.Fatal("empty tree should not contain 1")
	}
	if !tr.Put(1, "one") {
		t.Fatal("expected fresh insert to report true")
	}
	if tr.Put(1, "uno") {
		t.Fatal("expected overwrite to report false")
	}
	v, ok := tr.Get(1)
	if !ok || v != "uno" {
		t.Fatalf("Get(1) = %q, %v", v, ok)
	}
	if _, ok := tr.Remove(2); ok {
		t.Fatal("removing absent key should report false")
	}
	v, ok = tr.Remove(1)
	if !ok || v != "uno" {
		t.Fatalf("Remove(1) = %q, %v", v, ok)
	}
	if tr.Len() != 0 {
		t.Fatalf("expected empty tree, len=%d", tr.Len())
	}
}

// checkInvariants walks the tree verifying BST ordering, correct up
// pointers, balance factors within [-1,1], and that bf matches the
// actual subtree height difference.
func checkInvariants(t *testing.T, tr *Tree[int, int]) int {
	t.Helper()
	return checkNode(t, tr.root, nil)
}

func checkNode(t *testing.T, n *node[int, int], parent *node[int, int]) int {
	if n == nil {
		return 0
	}
	if n.up != parent {
		t.Fatalf("node %d: up pointer mismatch", n.key)
	}
	if n.l != nil && n.l.key >= n.key {
		t.Fatalf("node %d: left child %d violates BST order", n.key, n.l.key)
	}
	if n.r != nil && n.r.key <= n.key {
		t.Fatalf("node %d: right child %d violates BST order", n.key, n.r.key)
	}
	lh := checkNode(t, n.l, n)
	rh := checkNode(t, n.r, n)
	bf := rh - lh
	if bf < -1 || bf > 1 {
		t.Fatalf("node %d: height-derived balance factor %d out of range", n.key, bf)
	}
	if int(n.bf) != bf {
		t.Fatalf("node %d: stored bf=%d, height-derived bf=%d", n.key, n.bf, bf)
	}
	h := lh
	if rh > h {
		h = rh
	}
	return h + 1
}

func TestRandomizedInsertRemoveMaintainsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := New[int, int](cmpInt)
	present := map[int]int{}

	for round := 0; round < 2000; round++ {
		key := rng.Intn(200)
		if rng.Intn(3) == 0 && len(present) > 0 {
			// remove a random present key
			i := rng.Intn(len(present))
			var target int
			j := 0
			for k := range present {
				if j == i {
					target = k
					break
				}
				j++
			}
			if _, ok := tr.Remove(target); !ok {
				t.Fatalf("round %d: Remove(%d) reported absent but map had it", round, target)
			}
			delete(present, target)
		} else {
			present[key] = key * 2
			tr.Put(key, key*2)
		}
		checkInvariants(t, tr)
		if tr.Len() != len(present) {
			t.Fatalf("round %d: tree len=%d, want %d", round, tr.Len(), len(present))
		}
	}

	var got []int
	tr.Traverse(func(k, v int) {
		if v != k*2 {
			t.Fatalf("key %d has value %d, want %d", k, v, k*2)
		}
		got = append(got, k)
	})
	var want []int
	for k := range present {
		want = append(want, k)
	}
	sort.Ints(got)
	sort.Ints(want)
	if len(got) != len(want) {
		t.Fatalf("traverse found %d keys, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("traverse mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}
