package launcher

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

var ErrInvalidApp = errors.New("app has no id")

// Install adds an icon for app at the end of the app list. Installing an app
// that already has an icon returns the existing node.
func (m *Model) Install(app types.AppInfo) (id.NodeID, error) {
	nid, err := m.install(app)
	return nid, m.finish(err)
}

// Uninstall removes an icon.
func (m *Model) Uninstall(nid id.NodeID) error {
	return m.finish(m.uninstall(nid))
}

// OnAppInstalled handles the platform's app-installed notification.
func (m *Model) OnAppInstalled(app types.AppInfo) (id.NodeID, error) {
	if app.AppID == "" {
		return id.None, ErrInvalidApp
	}
	registered, regErr := m.catalog.Register(app)
	if regErr != nil {
		m.logger.Warn("app not recorded in catalog", zap.String("app_id", app.AppID), zap.Error(regErr))
		regErr = fmt.Errorf("%w: register %s: %w", ErrPersist, app.AppID, regErr)
	} else {
		app = registered
	}

	if existing, ok := m.findIcon(app.AppID); ok {
		return existing, regErr
	}
	nid, err := m.install(app)
	if err != nil {
		return id.None, m.finish(err)
	}
	n, _ := m.tree.Get(nid)
	m.presenter.RenderItem(n.Item.Clone())
	m.presenter.ViewNeedsRefresh(m.roots.AllApps)
	m.logger.Info("app installed", zap.String("app_id", app.AppID), zap.Stringer("node", nid))
	return nid, m.finish(regErr)
}

// OnAppUninstalled handles the platform's app-removed notification. The
// presenter is told first so it can drop its rendering handle. Pages or
// folders the removal empties are left for Tidy.
func (m *Model) OnAppUninstalled(appID string) error {
	var regErr error
	if err := m.catalog.Unregister(appID); err != nil {
		m.logger.Warn("app not removed from catalog", zap.String("app_id", appID), zap.Error(err))
		regErr = fmt.Errorf("%w: unregister %s: %w", ErrPersist, appID, err)
	}
	nid, ok := m.findIcon(appID)
	if !ok {
		return errors.Join(fmt.Errorf("app %q: %w", appID, ErrInvalidNode), regErr)
	}
	n, _ := m.tree.Get(nid)
	scope := m.parentOf(n.Parent)

	m.presenter.ItemUninstalled(n.Item.Clone())
	if err := m.uninstall(nid); err != nil {
		return m.finish(err)
	}
	m.presenter.ViewNeedsRefresh(scope)
	m.logger.Info("app uninstalled", zap.String("app_id", appID), zap.Stringer("node", nid))
	return m.finish(regErr)
}

// OnBadgeChanged updates an app's badge. Badges are not persisted.
func (m *Model) OnBadgeChanged(appID string, count int) error {
	nid, ok := m.findIcon(appID)
	if !ok {
		return fmt.Errorf("app %q: %w", appID, ErrInvalidNode)
	}
	n, _ := m.tree.Get(nid)
	if n.Item.Badge == count {
		return nil
	}
	n.Item.Badge = count
	m.presenter.ViewNeedsRefresh(nid)
	return nil
}

func (m *Model) install(app types.AppInfo) (id.NodeID, error) {
	if app.AppID == "" {
		return id.None, ErrInvalidApp
	}
	if existing, ok := m.findIcon(app.AppID); ok {
		return existing, nil
	}
	n := m.tree.NewNode(types.NewIcon(app))
	n.Item.Badge = app.Badge
	if err := m.appendPaginated(m.roots.AllApps, n.ID, m.layout.ListPageCapacity); err != nil {
		m.tree.Release(n.ID)
		return id.None, err
	}
	return n.ID, nil
}

func (m *Model) uninstall(nid id.NodeID) error {
	n, err := m.node(nid)
	if err != nil {
		return err
	}
	if n.Item.Type != types.ItemIcon {
		return fmt.Errorf("uninstall %s: %w", n.Item.Type, ErrNotRemovable)
	}
	_, err = m.tree.Release(nid)
	return err
}
