package tree

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

var (
	ErrInvalidNode = errors.New("invalid node")
	ErrNotAttached = errors.New("node has no parent")
	ErrAttached    = errors.New("node is already attached")
	ErrCycle       = errors.New("node would become its own ancestor")
	ErrDuplicate   = errors.New("node identity already in use")
)

// Position selects the end of a child chain for Attach.
type Position int

const (
	Append Position = iota
	Prepend
)

// Side selects where AttachRelative places a node next to its sibling.
type Side int

const (
	After Side = iota
	Before
)

// String returns the string representation of the side
func (s Side) String() string {
	if s == Before {
		return "before"
	}
	return "after"
}

// ParseSide parses "before" or "after", ignoring case. An empty string
// means After. It reports false for anything else.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(s) {
	case "", "after":
		return After, true
	case "before":
		return Before, true
	}
	return After, false
}

// Action is returned by visitors to continue or stop a walk.
type Action int

const (
	Continue Action = iota
	Stop
)

// Node is one arena entry.
type Node struct {
	ID     id.NodeID
	Parent id.NodeID
	First  id.NodeID
	Last   id.NodeID
	Next   id.NodeID
	Prev   id.NodeID
	Count  int
	Item   *types.Item
}

// Orphans describes the children a released node left behind. The children
// are parentless and unlinked from each other; Children lists them in their
// former order.
type Orphans struct {
	First    id.NodeID
	Last     id.NodeID
	Count    int
	Children []id.NodeID
}

// Syncer receives write-through notifications.
type Syncer interface {
	// Sync is called for every node whose persisted links changed.
	Sync(n *Node)
	// Forget is called for every node removed from the arena.
	Forget(n *Node)
}

type nopSyncer struct{}

func (nopSyncer) Sync(*Node)   {}
func (nopSyncer) Forget(*Node) {}

// Tree is an arena of nodes.
type Tree struct {
	nodes  map[id.NodeID]*Node
	seq    *id.Sequence
	syncer Syncer
	logger *zap.Logger
}

// New creates an empty tree. A nil syncer disables write-through.
func New(seq *id.Sequence, syncer Syncer, logger *zap.Logger) *Tree {
	if seq == nil {
		seq = id.NewSequence()
	}
	if syncer == nil {
		syncer = nopSyncer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{
		nodes:  make(map[id.NodeID]*Node),
		seq:    seq,
		syncer: syncer,
		logger: logger,
	}
}

// SetSyncer replaces the write-through target. Passing nil disables it,
// which the loader uses while rebuilding the arena from stored rows.
func (t *Tree) SetSyncer(s Syncer) {
	if s == nil {
		s = nopSyncer{}
	}
	t.syncer = s
}

// Reset drops every node and rewinds the identity sequence.
func (t *Tree) Reset() {
	t.nodes = make(map[id.NodeID]*Node)
	t.seq.Reset()
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// NewNode allocates a free node carrying item. A nil item becomes a zero
// record. The item's ID is set to the node's identity.
func (t *Tree) NewNode(item *types.Item) *Node {
	if item == nil {
		item = &types.Item{}
	}
	n := newNode(t.seq.Next(), item)
	t.nodes[n.ID] = n
	return n
}

// Restore inserts a free node with a known identity (used when loading).
func (t *Tree) Restore(nid id.NodeID, item *types.Item) (*Node, error) {
	if !nid.Valid() {
		return nil, fmt.Errorf("restore %s: %w", nid, ErrInvalidNode)
	}
	if _, exists := t.nodes[nid]; exists {
		return nil, fmt.Errorf("restore %s: %w", nid, ErrDuplicate)
	}
	if item == nil {
		item = &types.Item{}
	}
	n := newNode(nid, item)
	t.nodes[nid] = n
	t.seq.Observe(nid)
	return n, nil
}

func newNode(nid id.NodeID, item *types.Item) *Node {
	item.ID = nid
	return &Node{
		ID:     nid,
		Parent: id.None,
		First:  id.None,
		Last:   id.None,
		Next:   id.None,
		Prev:   id.None,
		Item:   item,
	}
}

// Get returns the node with the given identity.
func (t *Tree) Get(nid id.NodeID) (*Node, bool) {
	n, ok := t.nodes[nid]
	return n, ok
}

// Children returns the direct children of nid in order.
func (t *Tree) Children(nid id.NodeID) []id.NodeID {
	n, ok := t.nodes[nid]
	if !ok {
		return nil
	}
	out := make([]id.NodeID, 0, n.Count)
	for c := n.First; c != id.None; c = t.nodes[c].Next {
		out = append(out, c)
	}
	return out
}

// Attach inserts node as parent's new last (Append) or first (Prepend) child.
func (t *Tree) Attach(parentID, nodeID id.NodeID, pos Position) error {
	parent, node, err := t.pair("attach", parentID, nodeID)
	if err != nil {
		return err
	}
	if err := t.checkAttachable(parent, node); err != nil {
		return err
	}

	node.Parent = parent.ID
	node.Prev, node.Next = id.None, id.None

	var touched *Node
	switch pos {
	case Prepend:
		if first, ok := t.nodes[parent.First]; ok {
			first.Prev = node.ID
			node.Next = first.ID
		} else {
			parent.Last = node.ID
		}
		parent.First = node.ID
	default:
		if last, ok := t.nodes[parent.Last]; ok {
			last.Next = node.ID
			node.Prev = last.ID
			touched = last
		} else {
			parent.First = node.ID
		}
		parent.Last = node.ID
	}
	parent.Count++

	t.sync(node, touched, parent)
	return nil
}

// AttachRelative inserts node next to sibling under the sibling's parent.
// When the sibling has no neighbour on the requested side the call degrades
// to Attach at that end of the parent.
func (t *Tree) AttachRelative(nodeID, siblingID id.NodeID, side Side) error {
	sibling, node, err := t.pair("attach relative", siblingID, nodeID)
	if err != nil {
		return err
	}
	parent, ok := t.nodes[sibling.Parent]
	if !ok {
		t.logger.Warn("attach relative: sibling has no parent", zap.Stringer("sibling", siblingID))
		return fmt.Errorf("attach relative to %s: %w", siblingID, ErrNotAttached)
	}

	if side == Before {
		prev, ok := t.nodes[sibling.Prev]
		if !ok {
			return t.Attach(parent.ID, nodeID, Prepend)
		}
		if err := t.checkAttachable(parent, node); err != nil {
			return err
		}
		prev.Next = node.ID
		node.Prev = prev.ID
		node.Next = sibling.ID
		sibling.Prev = node.ID
		node.Parent = parent.ID
		parent.Count++
		t.sync(node, prev)
		return nil
	}

	next, ok := t.nodes[sibling.Next]
	if !ok {
		return t.Attach(parent.ID, nodeID, Append)
	}
	if err := t.checkAttachable(parent, node); err != nil {
		return err
	}
	sibling.Next = node.ID
	node.Prev = sibling.ID
	node.Next = next.ID
	next.Prev = node.ID
	node.Parent = parent.ID
	parent.Count++
	t.sync(node, sibling)
	return nil
}

// Detach unlinks node from its parent. The node keeps its own children and
// becomes the root of a free-standing subtree.
func (t *Tree) Detach(nodeID id.NodeID) error {
	node, ok := t.nodes[nodeID]
	if !ok {
		t.logger.Warn("detach: unknown node", zap.Stringer("node", nodeID))
		return fmt.Errorf("detach %s: %w", nodeID, ErrInvalidNode)
	}
	parent, ok := t.nodes[node.Parent]
	if !ok {
		t.logger.Debug("detach: node has no parent", zap.Stringer("node", nodeID))
		return fmt.Errorf("detach %s: %w", nodeID, ErrNotAttached)
	}

	var touched *Node
	if prev, ok := t.nodes[node.Prev]; ok {
		prev.Next = node.Next
		touched = prev
	} else {
		parent.First = node.Next
		touched = parent
	}
	if next, ok := t.nodes[node.Next]; ok {
		next.Prev = node.Prev
	} else {
		parent.Last = node.Prev
	}
	parent.Count--

	node.Parent, node.Prev, node.Next = id.None, id.None, id.None

	t.sync(node, touched)
	return nil
}

// Visit walks the subtree rooted at start in pre-order: the node first, then
// each child subtree in sibling order. It returns true when the visitor
// stopped the walk.
func (t *Tree) Visit(start id.NodeID, visit func(n *Node) Action) bool {
	root, ok := t.nodes[start]
	if !ok {
		return false
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visit(n) == Stop {
			return true
		}
		// Push children last-to-first so the first child is visited next.
		for c := n.Last; c != id.None; {
			child := t.nodes[c]
			stack = append(stack, child)
			c = child.Prev
		}
	}
	return false
}

// Release removes node from the arena. It is detached first; its children
// are left parentless and reported so the caller can re-home or release them.
func (t *Tree) Release(nodeID id.NodeID) (Orphans, error) {
	node, ok := t.nodes[nodeID]
	if !ok {
		t.logger.Warn("release: unknown node", zap.Stringer("node", nodeID))
		return Orphans{}, fmt.Errorf("release %s: %w", nodeID, ErrInvalidNode)
	}
	if node.Parent != id.None {
		if err := t.Detach(nodeID); err != nil {
			return Orphans{}, err
		}
	}

	orphans := Orphans{First: node.First, Last: node.Last, Count: node.Count}
	for c := node.First; c != id.None; {
		child := t.nodes[c]
		next := child.Next
		child.Parent, child.Prev, child.Next = id.None, id.None, id.None
		orphans.Children = append(orphans.Children, child.ID)
		t.syncer.Sync(child)
		c = next
	}

	delete(t.nodes, nodeID)
	t.syncer.Forget(node)
	node.Item = nil
	return orphans, nil
}

// ReleaseSubtree removes node and all of its descendants, children before
// parents. It returns the number of nodes released.
func (t *Tree) ReleaseSubtree(nodeID id.NodeID) (int, error) {
	node, ok := t.nodes[nodeID]
	if !ok {
		t.logger.Warn("release subtree: unknown node", zap.Stringer("node", nodeID))
		return 0, fmt.Errorf("release subtree %s: %w", nodeID, ErrInvalidNode)
	}
	if node.Parent != id.None {
		if err := t.Detach(nodeID); err != nil {
			return 0, err
		}
	}

	var order []*Node
	t.Visit(nodeID, func(n *Node) Action {
		order = append(order, n)
		return Continue
	})
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		delete(t.nodes, n.ID)
		t.syncer.Forget(n)
		n.Item = nil
	}
	return len(order), nil
}

// Touch writes an attribute change of node through to the syncer.
func (t *Tree) Touch(nodeID id.NodeID) error {
	n, ok := t.nodes[nodeID]
	if !ok {
		return fmt.Errorf("touch %s: %w", nodeID, ErrInvalidNode)
	}
	t.syncer.Sync(n)
	return nil
}

func (t *Tree) pair(op string, a, b id.NodeID) (*Node, *Node, error) {
	na, okA := t.nodes[a]
	nb, okB := t.nodes[b]
	if !okA || !okB {
		t.logger.Warn(op+": unknown node", zap.Stringer("a", a), zap.Stringer("b", b))
		return nil, nil, fmt.Errorf("%s %s/%s: %w", op, a, b, ErrInvalidNode)
	}
	return na, nb, nil
}

func (t *Tree) checkAttachable(parent, node *Node) error {
	if node.Parent != id.None {
		return fmt.Errorf("attach %s: %w", node.ID, ErrAttached)
	}
	for p := parent; p != nil; {
		if p.ID == node.ID {
			return fmt.Errorf("attach %s under %s: %w", node.ID, parent.ID, ErrCycle)
		}
		next, ok := t.nodes[p.Parent]
		if !ok {
			break
		}
		p = next
	}
	return nil
}

func (t *Tree) sync(nodes ...*Node) {
	var seen [4]id.NodeID
	k := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		dup := false
		for _, s := range seen[:k] {
			if s == n.ID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if k < len(seen) {
			seen[k] = n.ID
			k++
		}
		t.syncer.Sync(n)
	}
}
