package launcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// Strategy selects where Load takes the tree from.
type Strategy int

const (
	FromDatabase Strategy = iota
	FromAppRegistry
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	if s == FromAppRegistry {
		return "registry"
	}
	return "database"
}

// ReconcileReport counts the changes Reconcile made.
type ReconcileReport struct {
	Installed   int `json:"installed"`
	Uninstalled int `json:"uninstalled"`
}

// Load rebuilds the whole tree. FromDatabase walks the stored rows from the
// root row along first-child and next-sibling links. FromAppRegistry resets
// the table, creates an icon per catalog app and sorts.
func (m *Model) Load(ctx context.Context, s Strategy) error {
	m.sync.take()
	if s == FromAppRegistry {
		return m.loadRegistry(ctx)
	}
	return m.loadDatabase(ctx)
}

// LoadAuto loads from the database when it holds more than the seeded root
// row and reconciles the result with the catalog; otherwise it bootstraps
// from the registry.
func (m *Model) LoadAuto(ctx context.Context) (Strategy, error) {
	rows, err := m.store.LoadAll(ctx)
	if err != nil {
		return FromDatabase, fmt.Errorf("probe store: %w", err)
	}
	if len(rows) <= 1 {
		return FromAppRegistry, m.Load(ctx, FromAppRegistry)
	}
	if err := m.Load(ctx, FromDatabase); err != nil {
		return FromDatabase, err
	}
	_, err = m.Reconcile()
	return FromDatabase, err
}

// Reconcile installs catalog apps that have no icon and uninstalls icons
// whose app left the catalog. An empty catalog is treated as unavailable and
// changes nothing.
func (m *Model) Reconcile() (ReconcileReport, error) {
	var report ReconcileReport
	apps := m.catalog.Apps()
	if len(apps) == 0 {
		m.logger.Warn("reconcile skipped: catalog is empty")
		return report, nil
	}

	present := make(map[string]bool)
	var stale []id.NodeID
	m.tree.Visit(m.roots.AllApps, func(n *tree.Node) tree.Action {
		if n.Item.Type != types.ItemIcon {
			return tree.Continue
		}
		if _, ok := m.catalog.Lookup(n.Item.AppID); ok {
			present[n.Item.AppID] = true
		} else {
			stale = append(stale, n.ID)
		}
		return tree.Continue
	})

	var err error
	for _, nid := range stale {
		n, _ := m.tree.Get(nid)
		m.presenter.ItemUninstalled(n.Item.Clone())
		if uerr := m.uninstall(nid); uerr != nil {
			if err == nil {
				err = uerr
			}
			continue
		}
		report.Uninstalled++
	}
	for _, app := range apps {
		if present[app.AppID] {
			continue
		}
		nid, ierr := m.install(app)
		if ierr != nil {
			if err == nil {
				err = ierr
			}
			continue
		}
		n, _ := m.tree.Get(nid)
		m.presenter.RenderItem(n.Item.Clone())
		report.Installed++
	}

	if report.Installed > 0 || report.Uninstalled > 0 {
		m.logger.Info("reconciled with catalog",
			zap.Int("installed", report.Installed),
			zap.Int("uninstalled", report.Uninstalled))
		m.presenter.ViewNeedsRefresh(m.roots.AllApps)
	}
	return report, m.finish(err)
}

// Rows flattens the tree into store rows in pre-order.
func (m *Model) Rows() []store.Row {
	rows := make([]store.Row, 0, m.tree.Len())
	m.tree.Visit(m.roots.Root, func(n *tree.Node) tree.Action {
		rows = append(rows, rowOf(n))
		return tree.Continue
	})
	return rows
}

// Rebuild rewrites the whole table from the live tree.
func (m *Model) Rebuild(ctx context.Context) error {
	if err := m.store.ReplaceAll(ctx, m.Rows()); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (m *Model) loadRegistry(ctx context.Context) error {
	schemaErr := m.store.CreateSchema(ctx)
	if schemaErr != nil {
		m.logger.Warn("create schema failed, continuing in memory", zap.Error(schemaErr))
	}

	m.tree.Reset()
	root, err := m.tree.Restore(id.RootID, types.NewContainer(types.ItemRoot))
	if err != nil {
		return err
	}
	m.roots = Roots{Root: root.ID, AllApps: id.None, Home: id.None}
	if err := m.ensureRoots(); err != nil {
		return m.finish(err)
	}

	apps := m.catalog.Apps()
	for _, app := range apps {
		if _, err := m.install(app); err != nil {
			m.logger.Warn("skipping catalog app", zap.String("app_id", app.AppID), zap.Error(err))
		}
	}
	err = m.sortAll(m.compare)

	m.logger.Info("tree bootstrapped from registry", zap.Int("apps", len(apps)), zap.Int("nodes", m.tree.Len()))
	m.presenter.ViewNeedsRefresh(m.roots.Root)
	if err == nil && schemaErr != nil {
		err = fmt.Errorf("%w: %w", ErrPersist, schemaErr)
	}
	return m.finish(err)
}

func (m *Model) loadDatabase(ctx context.Context) error {
	rows, err := m.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	byID := make(map[id.NodeID]store.Row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	if r, ok := byID[id.RootID]; !ok || r.Type != types.ItemRoot {
		m.logger.Warn("stored tree has no root row, bootstrapping from registry")
		return m.loadRegistry(ctx)
	}

	// Rebuilding must not write back what it reads.
	m.tree.SetSyncer(nil)
	m.tree.Reset()
	if _, err := m.tree.Restore(id.RootID, types.NewContainer(types.ItemRoot)); err != nil {
		m.tree.SetSyncer(m.sync)
		return err
	}

	corrupt := false
	seen := map[id.NodeID]bool{id.RootID: true}
	stack := []id.NodeID{id.RootID}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for next := byID[parent].FirstChild; next != id.None; {
			r, ok := byID[next]
			if !ok {
				m.logger.Warn("dangling link in stored tree", zap.Stringer("parent", parent), zap.Stringer("missing", next))
				corrupt = true
				break
			}
			if seen[r.ID] {
				m.logger.Warn("cycle in stored tree", zap.Stringer("node", r.ID))
				corrupt = true
				break
			}
			seen[r.ID] = true
			next = r.NextSibling

			item, ok := m.itemFromRow(r)
			if !ok {
				m.logger.Warn("dropping stored row", zap.Stringer("node", r.ID), zap.Int("type", int(r.Type)))
				corrupt = true
				continue
			}
			if _, err := m.tree.Restore(r.ID, item); err != nil {
				corrupt = true
				continue
			}
			if err := m.tree.Attach(parent, r.ID, tree.Append); err != nil {
				m.tree.Release(r.ID)
				corrupt = true
				continue
			}
			stack = append(stack, r.ID)
		}
	}
	m.tree.SetSyncer(m.sync)

	if unreachable := len(rows) - m.tree.Len(); unreachable > 0 {
		m.logger.Warn("stored rows not reachable from root", zap.Int("rows", unreachable))
		corrupt = true
	}

	m.roots = Roots{Root: id.RootID, AllApps: id.None, Home: id.None}
	if m.assignRoots() {
		corrupt = true
	}
	if err := m.ensureRoots(); err != nil {
		return m.finish(err)
	}
	if m.repair() {
		corrupt = true
	}

	m.logger.Info("tree loaded from database", zap.Int("rows", len(rows)), zap.Int("nodes", m.tree.Len()))
	if corrupt {
		// The live tree is authoritative now; make the table match it.
		m.sync.take()
		if err := m.Rebuild(ctx); err != nil {
			m.logger.Warn("rewrite after repair failed", zap.Error(err))
			return m.finish(err)
		}
	}
	m.presenter.ViewNeedsRefresh(m.roots.Root)
	return m.finish(nil)
}

func (m *Model) itemFromRow(r store.Row) (*types.Item, bool) {
	if !r.Type.Valid() || r.Type == types.ItemRoot {
		return nil, false
	}
	it := &types.Item{
		Type:     r.Type,
		AppID:    r.AppID,
		Geometry: types.Geometry{X: r.X, Y: r.Y, W: r.W, H: r.H},
		Content:  r.Content,
	}
	switch r.Type {
	case types.ItemIcon:
		if app, ok := m.catalog.Lookup(r.AppID); ok {
			it.Label = app.Label
			it.IconPath = app.IconPath
			it.Exec = app.Exec
			it.Removable = app.Removable
			it.Badge = app.Badge
		} else {
			it.Label = r.AppID
			it.Removable = true
		}
	case types.ItemFolder:
		it.Label = decodeFolder(r.Content)
		it.Removable = true
	case types.ItemWidget:
		it.Removable = true
	}
	return it, true
}

// assignRoots picks the all-apps and home roots among the root's children.
// Extra copies are merged into the first one; anything else is dropped. It
// reports whether the stored shape was wrong.
func (m *Model) assignRoots() bool {
	corrupt := false
	for _, c := range m.tree.Children(m.roots.Root) {
		switch t := m.typeOf(c); {
		case t == types.ItemAllAppsRoot && m.roots.AllApps == id.None:
			m.roots.AllApps = c
		case t == types.ItemHomeRoot && m.roots.Home == id.None:
			m.roots.Home = c
		case t == types.ItemAllAppsRoot:
			m.logger.Warn("duplicate all-apps root, merging", zap.Stringer("node", c))
			m.absorb(c, m.roots.AllApps, m.layout.ListPageCapacity)
			corrupt = true
		case t == types.ItemHomeRoot:
			m.logger.Warn("duplicate home root, merging", zap.Stringer("node", c))
			m.absorb(c, m.roots.Home, m.layout.HomePageCapacity)
			corrupt = true
		default:
			m.logger.Warn("unexpected node under root", zap.Stringer("node", c), zap.Stringer("type", t))
			m.tree.ReleaseSubtree(c)
			corrupt = true
		}
	}
	return corrupt
}

// ensureRoots creates whichever of the all-apps and home roots is missing.
func (m *Model) ensureRoots() error {
	for _, want := range []struct {
		slot *id.NodeID
		t    types.ItemType
	}{
		{&m.roots.AllApps, types.ItemAllAppsRoot},
		{&m.roots.Home, types.ItemHomeRoot},
	} {
		if *want.slot != id.None {
			continue
		}
		n := m.tree.NewNode(types.NewContainer(want.t))
		if err := m.tree.Attach(m.roots.Root, n.ID, tree.Append); err != nil {
			m.tree.Release(n.ID)
			return err
		}
		*want.slot = n.ID
		m.logger.Debug("created root", zap.Stringer("type", want.t), zap.Stringer("node", n.ID))
	}
	return nil
}

// absorb moves the content of a duplicate container into primary and
// releases the duplicate.
func (m *Model) absorb(dup, primary id.NodeID, capacity int) {
	for _, p := range m.tree.Children(dup) {
		for _, c := range m.tree.Children(p) {
			if err := m.tree.Detach(c); err == nil {
				m.rehome(primary, c, capacity)
			}
		}
	}
	m.tree.ReleaseSubtree(dup)
}

// repair moves content that sits directly under a paginated container onto
// a proper page. It reports whether anything moved.
func (m *Model) repair() bool {
	moved := false
	containers := append([]id.NodeID{m.roots.AllApps, m.roots.Home}, m.folders()...)
	for _, c := range containers {
		capacity := m.pageCapacity(c)
		for _, child := range m.tree.Children(c) {
			if m.typeOf(child) == types.ItemPage {
				continue
			}
			m.logger.Warn("item outside a page, re-homing", zap.Stringer("node", child), zap.Stringer("container", c))
			if err := m.tree.Detach(child); err == nil {
				m.rehome(c, child, capacity)
			}
			moved = true
		}
	}
	return moved
}

// rehome appends a detached node to container. A node that cannot be placed
// is released with its subtree so the arena holds nothing unreachable.
func (m *Model) rehome(container, nid id.NodeID, capacity int) bool {
	err := m.appendPaginated(container, nid, capacity)
	if err == nil {
		return true
	}
	m.logger.Warn("dropping item that could not be re-homed",
		zap.Stringer("node", nid),
		zap.Stringer("container", container),
		zap.Error(err))
	if _, rerr := m.tree.ReleaseSubtree(nid); rerr != nil {
		m.logger.Warn("release of unplaced item failed", zap.Stringer("node", nid), zap.Error(rerr))
	}
	return false
}
