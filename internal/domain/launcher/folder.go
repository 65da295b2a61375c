package launcher

import (
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// folderState is what a folder keeps in its content column.
type folderState struct {
	Label string `json:"label"`
}

func encodeFolder(label string) (*string, error) {
	s, err := sonic.MarshalString(folderState{Label: label})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeFolder(content *string) string {
	if content == nil {
		return ""
	}
	var st folderState
	if err := sonic.UnmarshalString(*content, &st); err != nil {
		return ""
	}
	return st.Label
}

// CreateFolder builds a free folder holding one empty page. The caller
// places it with Reposition. Its rows are written at once but nothing links
// to them until it is placed; a load before that drops them as unreachable
// and rewrites the table.
func (m *Model) CreateFolder(item types.Item) (id.NodeID, error) {
	fid, err := m.createFolder(item.Label, item.Geometry)
	if err == nil {
		if n, ok := m.tree.Get(fid); ok {
			m.presenter.RenderItem(n.Item.Clone())
		}
	}
	return fid, m.finish(err)
}

// DeleteFolder moves every item of the folder, in order, onto the trailing
// all-apps pages and releases the folder with its pages.
func (m *Model) DeleteFolder(folder id.NodeID) (int, error) {
	n, err := m.deleteFolder(folder)
	if err == nil {
		m.presenter.ViewNeedsRefresh(m.roots.AllApps)
	}
	return n, m.finish(err)
}

// MergeIntoFolder replaces target with a new folder holding target and
// dragged. It returns the folder.
func (m *Model) MergeIntoFolder(target, dragged id.NodeID, label string) (id.NodeID, error) {
	fid, err := m.mergeIntoFolder(target, dragged, label)
	if err == nil {
		if n, ok := m.tree.Get(fid); ok {
			m.presenter.RenderItem(n.Item.Clone())
		}
		m.presenter.ViewNeedsRefresh(m.roots.AllApps)
	}
	return fid, m.finish(err)
}

// MoveIntoFolder appends an icon to the folder's pages.
func (m *Model) MoveIntoFolder(folder, nid id.NodeID) error {
	err := m.moveIntoFolder(folder, nid)
	if err == nil {
		m.presenter.ViewNeedsRefresh(folder)
	}
	return m.finish(err)
}

// DetachFromFolder moves an item out of its folder to the end of the app
// list and re-sorts everything.
func (m *Model) DetachFromFolder(folder, nid id.NodeID) error {
	err := m.detachFromFolder(folder, nid)
	if err == nil {
		m.presenter.ViewNeedsRefresh(m.roots.AllApps)
	}
	return m.finish(err)
}

// Rename changes a folder's label.
func (m *Model) Rename(nid id.NodeID, label string) error {
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	if n.Item.Type != types.ItemFolder {
		return fmt.Errorf("rename %s: %w", n.Item.Type, ErrWrongType)
	}
	content, err := encodeFolder(label)
	if err != nil {
		return fmt.Errorf("encode folder state: %w", err)
	}
	n.Item.Label = label
	n.Item.Content = content
	err = m.tree.Touch(nid)
	if err == nil {
		m.presenter.RenderItem(n.Item.Clone())
	}
	return m.finish(err)
}

func (m *Model) createFolder(label string, geom types.Geometry) (id.NodeID, error) {
	content, err := encodeFolder(label)
	if err != nil {
		return id.None, fmt.Errorf("encode folder state: %w", err)
	}
	f := m.tree.NewNode(&types.Item{
		Type:      types.ItemFolder,
		Label:     label,
		Removable: true,
		Geometry:  geom,
		Content:   content,
	})
	if _, err := m.newPage(f.ID); err != nil {
		m.tree.ReleaseSubtree(f.ID)
		return id.None, err
	}
	return f.ID, nil
}

func (m *Model) deleteFolder(folder id.NodeID) (int, error) {
	f, err := m.node(folder)
	if err != nil {
		return 0, err
	}
	if f.Item.Type != types.ItemFolder {
		return 0, fmt.Errorf("delete folder %s: %w", f.Item.Type, ErrWrongType)
	}

	var items []id.NodeID
	for _, p := range m.Pages(folder) {
		items = append(items, m.tree.Children(p)...)
	}
	for _, it := range items {
		if err := m.tree.Detach(it); err != nil {
			return 0, err
		}
		if err := m.appendPaginated(m.roots.AllApps, it, m.layout.ListPageCapacity); err != nil {
			return 0, err
		}
	}

	if _, err := m.tree.ReleaseSubtree(folder); err != nil {
		return len(items), err
	}
	m.logger.Debug("folder deleted", zap.Stringer("folder", folder), zap.Int("items", len(items)))
	return len(items), nil
}

func (m *Model) mergeIntoFolder(target, dragged id.NodeID, label string) (id.NodeID, error) {
	if target == dragged {
		return id.None, fmt.Errorf("merge %s with itself: %w", target, ErrInvalidMove)
	}
	t, err := m.node(target)
	if err != nil {
		return id.None, err
	}
	d, err := m.node(dragged)
	if err != nil {
		return id.None, err
	}
	if t.Item.Type != types.ItemIcon || d.Item.Type != types.ItemIcon {
		return id.None, fmt.Errorf("merge %s with %s: %w", t.Item.Type, d.Item.Type, ErrWrongType)
	}
	if m.parentOf(t.Parent) != m.roots.AllApps {
		return id.None, fmt.Errorf("merge target %s is not in the app list: %w", target, ErrInvalidMove)
	}

	fid, err := m.createFolder(label, types.Geometry{})
	if err != nil {
		return id.None, err
	}
	// The folder takes the target's slot, so the page count is unchanged.
	if err := m.tree.AttachRelative(fid, target, tree.Before); err != nil {
		m.tree.ReleaseSubtree(fid)
		return id.None, err
	}
	page := m.Pages(fid)[0]
	if err := m.tree.Detach(target); err != nil {
		return fid, err
	}
	if err := m.tree.Attach(page, target, tree.Append); err != nil {
		return fid, err
	}
	if d.Parent != id.None {
		if err := m.tree.Detach(dragged); err != nil {
			return fid, err
		}
	}
	return fid, m.appendPaginated(fid, dragged, m.layout.FolderPageCapacity)
}

func (m *Model) moveIntoFolder(folder, nid id.NodeID) error {
	f, err := m.node(folder)
	if err != nil {
		return err
	}
	if f.Item.Type != types.ItemFolder {
		return fmt.Errorf("move into %s: %w", f.Item.Type, ErrNotContainer)
	}
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	if n.Item.Type != types.ItemIcon {
		return fmt.Errorf("move %s into folder: %w", n.Item.Type, ErrInvalidMove)
	}
	if m.parentOf(n.Parent) == folder {
		return nil
	}
	if m.folderItems(folder) >= m.layout.FolderMaxItems {
		return fmt.Errorf("folder %s: %w", folder, ErrFolderFull)
	}
	if n.Parent != id.None {
		if err := m.tree.Detach(nid); err != nil {
			return err
		}
	}
	return m.appendPaginated(folder, nid, m.layout.FolderPageCapacity)
}

func (m *Model) detachFromFolder(folder, nid id.NodeID) error {
	if _, err := m.node(folder); err != nil {
		return err
	}
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	if m.parentOf(n.Parent) != folder {
		return fmt.Errorf("%s is not in folder %s: %w", nid, folder, ErrNotAttached)
	}

	pages := m.Pages(m.roots.AllApps)
	var dest id.NodeID
	if len(pages) > 0 {
		dest = pages[len(pages)-1]
	} else if dest, err = m.newPage(m.roots.AllApps); err != nil {
		return err
	}
	if err := m.reposition(nid, dest, id.None, tree.After, m.layout.ListPageCapacity); err != nil {
		return err
	}
	return m.sortAll(m.compare)
}
