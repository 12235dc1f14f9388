package value

import "fmt"

// HandleID identifies a handle within an Arena. Zero is never issued, so a
// zero ID on the wire always means "no handle".
type HandleID uint32

// node is one arena slot. Composite nodes link their children by slot
// index; scalar nodes keep their payload in scalar. refs counts issued
// handles plus parent links.
type node struct {
	scalar   Value
	keys     []string
	children []int
	refs     int
}

// Arena is the host-owned store behind plugin handles. A handle is an index
// into the arena plus a reference on the node it names, so values can be
// re-serialised at the boundary without invalidating outstanding handles.
// Only IDs handed to a plugin appear in the handle table; child links stay
// internal.
//
// Arena is not safe for concurrent use; plugin calls are strictly sequential.
type Arena struct {
	handles map[HandleID]int
	nodes   []node
	free    []int
	next    HandleID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{handles: make(map[HandleID]int)}
}

// Handle is a reference-counted alias to one node. Cloning duplicates the
// reference, never the value.
type Handle struct {
	arena *Arena
	id    HandleID
}

// New stores v in a fresh node and returns the first handle to it.
func (a *Arena) New(v Value) Handle {
	return a.issue(a.store(v))
}

// Lookup resolves an ID received from a plugin.
func (a *Arena) Lookup(id HandleID) (Handle, error) {
	if _, ok := a.handles[id]; !ok {
		return Handle{}, fmt.Errorf("%w: %d", ErrInvalidHandle, id)
	}
	return Handle{arena: a, id: id}, nil
}

// Live returns the number of nodes still referenced.
func (a *Arena) Live() int {
	return len(a.nodes) - len(a.free)
}

// Handles returns the number of handles issued and not yet dropped.
func (a *Arena) Handles() int {
	return len(a.handles)
}

// Reset drops every handle and node. Handles are only valid for the
// duration of one boundary call; the host resets the arena afterwards.
// IDs keep increasing across resets, so a stale ID never resolves.
func (a *Arena) Reset() {
	a.handles = make(map[HandleID]int)
	a.nodes = nil
	a.free = nil
}

func (a *Arena) alloc() int {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		return idx
	}
	a.nodes = append(a.nodes, node{})
	return len(a.nodes) - 1
}

// store places v in a fresh slot with no references yet.
func (a *Arena) store(v Value) int {
	idx := a.alloc()
	a.fill(idx, v)
	return idx
}

func (a *Arena) issue(idx int) Handle {
	a.next++
	if a.next == 0 {
		a.next = 1
	}
	a.handles[a.next] = idx
	a.nodes[idx].refs++
	return Handle{arena: a, id: a.next}
}

// link stores v as a child and takes the parent's reference on it.
func (a *Arena) link(v Value) int {
	idx := a.store(v)
	a.nodes[idx].refs++
	return idx
}

// fill writes v into slot idx, creating child nodes for composites.
func (a *Arena) fill(idx int, v Value) {
	var keys []string
	var children []int
	scalar := v
	switch v.kind {
	case KindArray:
		children = make([]int, len(v.arr))
		for i, item := range v.arr {
			children[i] = a.link(item)
		}
		scalar = Value{kind: KindArray}
	case KindTable:
		keys = make([]string, len(v.tbl))
		children = make([]int, len(v.tbl))
		for i, e := range v.tbl {
			keys[i] = e.Key
			children[i] = a.link(e.Value)
		}
		scalar = Value{kind: KindTable}
	default:
		scalar = v.Clone()
	}
	n := &a.nodes[idx]
	n.scalar = scalar
	n.keys = keys
	n.children = children
}

// clear releases the children of slot idx.
func (a *Arena) clear(idx int) {
	children := a.nodes[idx].children
	a.nodes[idx].children = nil
	a.nodes[idx].keys = nil
	a.nodes[idx].scalar = Value{}
	for _, child := range children {
		a.unref(child)
	}
}

func (a *Arena) release(id HandleID) {
	idx, ok := a.handles[id]
	if !ok {
		return
	}
	delete(a.handles, id)
	a.unref(idx)
}

func (a *Arena) unref(idx int) {
	a.nodes[idx].refs--
	if a.nodes[idx].refs == 0 {
		a.clear(idx)
		a.free = append(a.free, idx)
	}
}

// child returns the slot of the i-th child of n, failing on a link to a
// freed slot.
func (a *Arena) child(n node, i int) (int, error) {
	idx := n.children[i]
	if idx < 0 || idx >= len(a.nodes) || a.nodes[idx].refs <= 0 {
		return 0, fmt.Errorf("%w: dangling child %d", ErrInvalidHandle, i)
	}
	return idx, nil
}

func (a *Arena) materialize(idx int) (Value, error) {
	n := a.nodes[idx]
	switch n.scalar.kind {
	case KindArray, KindTable:
		items := make([]Value, len(n.children))
		for i := range n.children {
			c, err := a.child(n, i)
			if err != nil {
				return Value{}, err
			}
			if items[i], err = a.materialize(c); err != nil {
				return Value{}, err
			}
		}
		if n.scalar.kind == KindArray {
			return Value{kind: KindArray, arr: items}, nil
		}
		entries := make([]Entry, len(items))
		for i, item := range items {
			entries[i] = Entry{Key: n.keys[i], Value: item}
		}
		return Value{kind: KindTable, tbl: entries}, nil
	default:
		return n.scalar.Clone(), nil
	}
}

func (h Handle) slot() (int, error) {
	if h.arena == nil {
		return 0, ErrInvalidHandle
	}
	idx, ok := h.arena.handles[h.id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidHandle, h.id)
	}
	return idx, nil
}

// ID returns the wire identifier of h.
func (h Handle) ID() HandleID { return h.id }

// Get returns a deep copy of the node. Later mutations are not reflected
// in the returned value.
func (h Handle) Get() (Value, error) {
	idx, err := h.slot()
	if err != nil {
		return Value{}, err
	}
	return h.arena.materialize(idx)
}

// Set replaces the node for every holder of h.
func (h Handle) Set(v Value) error {
	idx, err := h.slot()
	if err != nil {
		return err
	}
	h.arena.clear(idx)
	h.arena.fill(idx, v)
	return nil
}

// Clone returns a new alias to the same node.
func (h Handle) Clone() (Handle, error) {
	idx, err := h.slot()
	if err != nil {
		return Handle{}, err
	}
	return h.arena.issue(idx), nil
}

// Drop releases h. The node is freed once its last handle and parent link
// are gone.
func (h Handle) Drop() error {
	if _, err := h.slot(); err != nil {
		return err
	}
	h.arena.release(h.id)
	return nil
}

// Field returns a new alias to the first child of a table named key, so a
// plugin can mutate a subtree in place.
func (h Handle) Field(key string) (Handle, error) {
	idx, err := h.slot()
	if err != nil {
		return Handle{}, err
	}
	n := h.arena.nodes[idx]
	if n.scalar.kind != KindTable {
		return Handle{}, fmt.Errorf("%w: field %q on %s", ErrNotComposite, key, n.scalar.kind)
	}
	for i, k := range n.keys {
		if k == key {
			c, err := h.arena.child(n, i)
			if err != nil {
				return Handle{}, err
			}
			return h.arena.issue(c), nil
		}
	}
	return Handle{}, fmt.Errorf("%w: no field %q", ErrInvalidHandle, key)
}

// Index returns a new alias to the i-th child of an array or table.
func (h Handle) Index(i int) (Handle, error) {
	idx, err := h.slot()
	if err != nil {
		return Handle{}, err
	}
	n := h.arena.nodes[idx]
	if n.scalar.kind != KindArray && n.scalar.kind != KindTable {
		return Handle{}, fmt.Errorf("%w: index on %s", ErrNotComposite, n.scalar.kind)
	}
	if i < 0 || i >= len(n.children) {
		return Handle{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidHandle, i, len(n.children))
	}
	c, err := h.arena.child(n, i)
	if err != nil {
		return Handle{}, err
	}
	return h.arena.issue(c), nil
}
