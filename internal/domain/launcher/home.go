package launcher

import (
	"fmt"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// AddHomePage appends an empty widget page to the home screen.
func (m *Model) AddHomePage() (id.NodeID, error) {
	page, err := m.newPage(m.roots.Home)
	if err == nil {
		m.presenter.ViewNeedsRefresh(m.roots.Home)
	}
	return page, m.finish(err)
}

// AddWidget places a new widget on page, or on the last home page with room
// when page is None. A full page overflows forward like Reposition.
func (m *Model) AddWidget(page id.NodeID, item types.Item) (id.NodeID, error) {
	item.Type = types.ItemWidget
	item.Removable = true
	item.Handle = nil
	w := m.tree.NewNode(&item)

	var err error
	if page == id.None {
		err = m.appendPaginated(m.roots.Home, w.ID, m.layout.HomePageCapacity)
	} else {
		err = m.reposition(w.ID, page, id.None, tree.After, m.layout.HomePageCapacity)
	}
	if err != nil {
		m.tree.Release(w.ID)
		return id.None, m.finish(err)
	}

	m.presenter.RenderItem(w.Item.Clone())
	m.presenter.ViewNeedsRefresh(m.roots.Home)
	return w.ID, m.finish(nil)
}

// SetGeometry updates the grid placement of a widget or folder.
func (m *Model) SetGeometry(nid id.NodeID, geom types.Geometry) error {
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	if n.Item.Type != types.ItemWidget && n.Item.Type != types.ItemFolder {
		return fmt.Errorf("set geometry on %s: %w", n.Item.Type, ErrWrongType)
	}
	n.Item.Geometry = geom
	return m.finish(m.tree.Touch(nid))
}

// RemoveWidget deletes a widget from the home screen.
func (m *Model) RemoveWidget(nid id.NodeID) error {
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	if n.Item.Type != types.ItemWidget {
		return fmt.Errorf("remove %s as widget: %w", n.Item.Type, ErrNotRemovable)
	}
	m.presenter.ItemUninstalled(n.Item.Clone())
	_, err = m.tree.Release(nid)
	if err == nil {
		m.presenter.ViewNeedsRefresh(m.roots.Home)
	}
	return m.finish(err)
}
