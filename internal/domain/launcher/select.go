package launcher

import (
	"fmt"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// View is a read-only snapshot of a subtree.
type View struct {
	types.Item
	Count    int     `json:"count"`
	Children []*View `json:"children,omitempty"`
}

// CheckSubtree sets the checked flag on every icon at or below nid. Folders
// and pages are walked through but never flagged. It returns the number of
// icons whose flag changed.
func (m *Model) CheckSubtree(nid id.NodeID, checked bool) (int, error) {
	if _, err := m.node(nid); err != nil {
		return 0, err
	}
	changed := 0
	m.tree.Visit(nid, func(n *tree.Node) tree.Action {
		if n.Item.Type == types.ItemIcon && n.Item.Checked != checked {
			n.Item.Checked = checked
			changed++
		}
		return tree.Continue
	})
	return changed, nil
}

// CountChecked counts checked icons in the app list, including those inside
// folders.
func (m *Model) CountChecked() int {
	count := 0
	m.tree.Visit(m.roots.AllApps, func(n *tree.Node) tree.Action {
		if n.Item.Type == types.ItemIcon && n.Item.Checked {
			count++
		}
		return tree.Continue
	})
	return count
}

// SearchByAppID returns the first node in pre-order whose app id matches.
func (m *Model) SearchByAppID(appID string) (id.NodeID, bool) {
	return m.search(m.roots.Root, appID, false)
}

// findIcon is SearchByAppID restricted to icons in the app list.
func (m *Model) findIcon(appID string) (id.NodeID, bool) {
	return m.search(m.roots.AllApps, appID, true)
}

func (m *Model) search(start id.NodeID, appID string, iconsOnly bool) (id.NodeID, bool) {
	if appID == "" {
		return id.None, false
	}
	found := id.None
	m.tree.Visit(start, func(n *tree.Node) tree.Action {
		if n.Item.AppID != appID || (iconsOnly && n.Item.Type != types.ItemIcon) {
			return tree.Continue
		}
		found = n.ID
		return tree.Stop
	})
	return found, found != id.None
}

// Item returns a copy of one item.
func (m *Model) Item(nid id.NodeID) (types.Item, error) {
	n, err := m.node(nid)
	if err != nil {
		return types.Item{}, err
	}
	return n.Item.Clone(), nil
}

// Children returns copies of the direct children of nid in order.
func (m *Model) Children(nid id.NodeID) ([]types.Item, error) {
	if _, err := m.node(nid); err != nil {
		return nil, err
	}
	kids := m.tree.Children(nid)
	out := make([]types.Item, 0, len(kids))
	for _, c := range kids {
		n, _ := m.tree.Get(c)
		out = append(out, n.Item.Clone())
	}
	return out, nil
}

// Snapshot copies the subtree rooted at nid.
func (m *Model) Snapshot(nid id.NodeID) (*View, error) {
	if _, err := m.node(nid); err != nil {
		return nil, err
	}
	views := make(map[id.NodeID]*View)
	var top *View
	m.tree.Visit(nid, func(n *tree.Node) tree.Action {
		v := &View{Item: n.Item.Clone(), Count: n.Count}
		views[n.ID] = v
		if n.ID == nid {
			top = v
		} else {
			parent := views[n.Parent]
			parent.Children = append(parent.Children, v)
		}
		return tree.Continue
	})
	return top, nil
}

// SetHandle stores the rendering layer's handle on an item.
func (m *Model) SetHandle(nid id.NodeID, handle any) error {
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	n.Item.Handle = handle
	return nil
}

// ClearHandle drops the rendering handle of an item.
func (m *Model) ClearHandle(nid id.NodeID) error {
	return m.SetHandle(nid, nil)
}

// Handle returns the rendering handle of an item, if any.
func (m *Model) Handle(nid id.NodeID) (any, error) {
	n, err := m.node(nid)
	if err != nil {
		return nil, fmt.Errorf("handle: %w", err)
	}
	return n.Item.Handle, nil
}
