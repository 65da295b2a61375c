package launcher

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// TidyReport summarizes a Tidy pass.
type TidyReport struct {
	PagesFreed     int `json:"pages_freed"`
	FoldersRemoved int `json:"folders_removed"`
}

// AppendWithPagination adds the free node nid to the last page of parent,
// opening a new page first when the last one is full or missing.
func (m *Model) AppendWithPagination(parent, nid id.NodeID, capacity int) error {
	return m.finish(m.appendPaginated(parent, nid, capacity))
}

// Reposition moves nid next to destSibling (or to one end of destParent when
// destSibling is None) and cascades overflow forward page by page until every
// page fits capacity. A capacity of zero selects the destination's default.
func (m *Model) Reposition(nid, destParent, destSibling id.NodeID, side tree.Side, capacity int) error {
	return m.finish(m.reposition(nid, destParent, destSibling, side, capacity))
}

// FreeEmptyPages releases every page of container that has no children.
// None selects the all-apps root.
func (m *Model) FreeEmptyPages(container id.NodeID) (int, error) {
	n, err := m.freeEmptyPages(container)
	return n, m.finish(err)
}

// Tidy prunes empty pages everywhere and removes folders left with no items.
func (m *Model) Tidy() (TidyReport, error) {
	var report TidyReport
	var err error

	for _, f := range m.folders() {
		freed, ferr := m.freeEmptyPages(f)
		report.PagesFreed += freed
		if ferr != nil && err == nil {
			err = ferr
		}
		if m.folderItems(f) > 0 {
			continue
		}
		if _, rerr := m.tree.ReleaseSubtree(f); rerr != nil {
			if err == nil {
				err = rerr
			}
			continue
		}
		report.FoldersRemoved++
	}
	for _, c := range []id.NodeID{m.roots.AllApps, m.roots.Home} {
		freed, ferr := m.freeEmptyPages(c)
		report.PagesFreed += freed
		if ferr != nil && err == nil {
			err = ferr
		}
	}

	if report.PagesFreed > 0 || report.FoldersRemoved > 0 {
		m.logger.Debug("tidy",
			zap.Int("pages_freed", report.PagesFreed),
			zap.Int("folders_removed", report.FoldersRemoved))
		m.presenter.ViewNeedsRefresh(m.roots.Root)
	}
	return report, m.finish(err)
}

// Pages returns the page children of a paginated container.
func (m *Model) Pages(container id.NodeID) []id.NodeID {
	var out []id.NodeID
	for _, c := range m.tree.Children(container) {
		if m.typeOf(c) == types.ItemPage {
			out = append(out, c)
		}
	}
	return out
}

func (m *Model) appendPaginated(parent, nid id.NodeID, capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("append %s: %w", nid, ErrInvalidCapacity)
	}
	p, err := m.node(parent)
	if err != nil {
		return err
	}
	if !paginated(p.Item.Type) {
		return fmt.Errorf("append to %s %s: %w", p.Item.Type, parent, ErrNotContainer)
	}
	if _, err := m.node(nid); err != nil {
		return err
	}

	page := p.Last
	if last, ok := m.tree.Get(page); !ok || last.Item.Type != types.ItemPage || last.Count >= capacity {
		if page, err = m.newPage(parent); err != nil {
			return err
		}
	}
	return m.tree.Attach(page, nid, tree.Append)
}

func (m *Model) reposition(nid, destParent, destSibling id.NodeID, side tree.Side, capacity int) error {
	if nid == destSibling {
		return nil
	}
	n, err := m.node(nid)
	if err != nil {
		return err
	}

	if destSibling != id.None {
		sib, err := m.node(destSibling)
		if err != nil {
			return err
		}
		if sib.Parent == id.None {
			return fmt.Errorf("reposition next to %s: %w", destSibling, ErrNotAttached)
		}
		if destParent != sib.Parent {
			if destParent != id.None {
				m.logger.Warn("reposition: sibling is not under destination, using its page",
					zap.Stringer("dest", destParent), zap.Stringer("sibling", destSibling))
			}
			destParent = sib.Parent
		}
	}

	dest, err := m.node(destParent)
	if err != nil {
		return err
	}
	if dest.Item.Type != types.ItemPage {
		return fmt.Errorf("reposition into %s %s: %w", dest.Item.Type, destParent, ErrNotContainer)
	}
	owner := dest.Parent
	if err := m.checkPlacement(n, owner); err != nil {
		return err
	}
	if capacity <= 0 {
		capacity = m.pageCapacity(owner)
	}

	if n.Parent != id.None {
		if err := m.tree.Detach(nid); err != nil {
			return err
		}
	}
	if destSibling != id.None {
		err = m.tree.AttachRelative(nid, destSibling, side)
	} else if side == tree.Before {
		err = m.tree.Attach(destParent, nid, tree.Prepend)
	} else {
		err = m.tree.Attach(destParent, nid, tree.Append)
	}
	if err != nil {
		return err
	}

	_, err = m.cascade(destParent, capacity)
	return err
}

// cascade pushes the last child of an overfull page to the front of the
// following page until every page fits, adding a page at the end when the
// sequence runs out. It returns the number of items pushed.
func (m *Model) cascade(page id.NodeID, capacity int) (int, error) {
	moved := 0
	for {
		p, err := m.node(page)
		if err != nil {
			return moved, err
		}
		if p.Count <= capacity {
			break
		}

		overflow := p.Last
		if err := m.tree.Detach(overflow); err != nil {
			return moved, err
		}
		next := p.Next
		if m.typeOf(next) != types.ItemPage {
			np := m.tree.NewNode(types.NewContainer(types.ItemPage))
			if err := m.tree.AttachRelative(np.ID, page, tree.After); err != nil {
				m.tree.Release(np.ID)
				return moved, err
			}
			next = np.ID
		}
		if err := m.tree.Attach(next, overflow, tree.Prepend); err != nil {
			return moved, err
		}
		moved++
		page = next
	}

	if moved > 0 {
		m.metrics.ObserveCascade(moved)
	}
	return moved, nil
}

func (m *Model) freeEmptyPages(container id.NodeID) (int, error) {
	if container == id.None {
		container = m.roots.AllApps
	}
	c, err := m.node(container)
	if err != nil {
		return 0, err
	}
	if !paginated(c.Item.Type) {
		return 0, fmt.Errorf("free pages of %s %s: %w", c.Item.Type, container, ErrNotContainer)
	}

	freed := 0
	for {
		empty := id.None
		for _, p := range m.Pages(container) {
			if n, _ := m.tree.Get(p); n.Count == 0 {
				empty = p
				break
			}
		}
		if empty == id.None {
			return freed, nil
		}
		if _, err := m.tree.Release(empty); err != nil {
			return freed, err
		}
		freed++
	}
}

func (m *Model) newPage(container id.NodeID) (id.NodeID, error) {
	page := m.tree.NewNode(types.NewContainer(types.ItemPage))
	if err := m.tree.Attach(container, page.ID, tree.Append); err != nil {
		m.tree.Release(page.ID)
		return id.None, err
	}
	return page.ID, nil
}

// checkPlacement enforces where each item type may live: icons in the app
// list or a folder, folders only in the app list, widgets only on the home
// screen.
func (m *Model) checkPlacement(n *tree.Node, owner id.NodeID) error {
	ownerType := m.typeOf(owner)
	ok := false
	switch n.Item.Type {
	case types.ItemIcon:
		ok = ownerType == types.ItemAllAppsRoot || ownerType == types.ItemFolder
	case types.ItemFolder:
		ok = ownerType == types.ItemAllAppsRoot
	case types.ItemWidget:
		ok = ownerType == types.ItemHomeRoot
	}
	if !ok {
		return fmt.Errorf("%s %s into %s: %w", n.Item.Type, n.ID, ownerType, ErrInvalidMove)
	}

	if ownerType == types.ItemFolder && m.parentOf(n.Parent) != owner &&
		m.folderItems(owner) >= m.layout.FolderMaxItems {
		return fmt.Errorf("folder %s: %w", owner, ErrFolderFull)
	}
	return nil
}

func (m *Model) pageCapacity(owner id.NodeID) int {
	switch m.typeOf(owner) {
	case types.ItemFolder:
		return m.layout.FolderPageCapacity
	case types.ItemHomeRoot:
		return m.layout.HomePageCapacity
	default:
		return m.layout.ListPageCapacity
	}
}

// folders lists the folders placed on all-apps pages.
func (m *Model) folders() []id.NodeID {
	var out []id.NodeID
	for _, p := range m.Pages(m.roots.AllApps) {
		for _, c := range m.tree.Children(p) {
			if m.typeOf(c) == types.ItemFolder {
				out = append(out, c)
			}
		}
	}
	return out
}

func (m *Model) folderItems(folder id.NodeID) int {
	total := 0
	for _, p := range m.Pages(folder) {
		if n, ok := m.tree.Get(p); ok {
			total += n.Count
		}
	}
	return total
}

func paginated(t types.ItemType) bool {
	return t == types.ItemAllAppsRoot || t == types.ItemHomeRoot || t == types.ItemFolder
}
