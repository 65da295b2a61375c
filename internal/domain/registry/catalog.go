package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// Diff is the change between two scans of the apps directory
type Diff struct {
	Installed   []types.AppInfo
	Uninstalled []string
	Updated     []types.AppInfo
}

// Empty reports whether the scan changed nothing
func (d Diff) Empty() bool {
	return len(d.Installed) == 0 && len(d.Uninstalled) == 0 && len(d.Updated) == 0
}

// Catalog is the set of installed applications, read from manifests under
// a directory. It is safe for concurrent use.
type Catalog struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	apps     map[string]types.AppInfo
	sources  map[string]string
	lastScan *time.Time
}

// NewCatalog creates an empty catalog over dir. Call Scan to populate it.
func NewCatalog(dir string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		dir:     dir,
		logger:  logger,
		apps:    make(map[string]types.AppInfo),
		sources: make(map[string]string),
	}
}

// Dir returns the scanned directory
func (c *Catalog) Dir() string {
	return c.dir
}

// Scan reads every manifest under the directory, replaces the catalog
// contents and returns what changed. Manifests that fail to parse are
// logged and skipped. A missing directory yields an empty catalog.
func (c *Catalog) Scan(ctx context.Context) (Diff, error) {
	apps, sources, err := c.read(ctx)
	if err != nil {
		return Diff{}, err
	}

	now := time.Now()
	c.mu.Lock()
	diff := diffApps(c.apps, apps)
	c.apps = apps
	c.sources = sources
	c.lastScan = &now
	c.mu.Unlock()

	c.logger.Info("Catalog scanned",
		zap.String("dir", c.dir),
		zap.Int("apps", len(apps)),
		zap.Int("installed", len(diff.Installed)),
		zap.Int("uninstalled", len(diff.Uninstalled)),
		zap.Int("updated", len(diff.Updated)))
	return diff, nil
}

func (c *Catalog) read(ctx context.Context) (map[string]types.AppInfo, map[string]string, error) {
	apps := make(map[string]types.AppInfo)
	sources := make(map[string]string)

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		c.logger.Warn("Apps directory not found", zap.String("dir", c.dir))
		return apps, sources, nil
	}

	matches, err := doublestar.Glob(os.DirFS(c.dir), ManifestPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to glob manifests in %s: %w", c.dir, err)
	}
	sort.Strings(matches)

	var failed int
	for _, rel := range matches {
		path := filepath.Join(c.dir, filepath.FromSlash(rel))
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		app, err := c.load(path)
		if err != nil {
			c.logger.Warn("Skipping manifest", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		if prev, dup := sources[app.AppID]; dup {
			c.logger.Warn("Duplicate app id",
				zap.String("app_id", app.AppID),
				zap.String("kept", prev),
				zap.String("ignored", path))
			continue
		}
		apps[app.AppID] = app
		sources[app.AppID] = path
	}

	if failed > 0 {
		c.logger.Info("Some manifests failed to load", zap.Int("failed", failed))
	}
	return apps, sources, nil
}

func (c *Catalog) load(path string) (types.AppInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.AppInfo{}, err
	}
	if info.IsDir() {
		return types.AppInfo{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxManifestSize {
		return types.AppInfo{}, fmt.Errorf("%s: %w (%d bytes)", path, ErrManifestSize, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.AppInfo{}, err
	}
	return ParseManifest(path, data)
}

// Register records an application reported by an install notification and
// returns it as the catalog holds it. Known ids come back unchanged. A new
// id gets a YAML manifest under the directory so later scans, including the
// one at the next start, keep reporting it.
func (c *Catalog) Register(app types.AppInfo) (types.AppInfo, error) {
	appID := strings.TrimSpace(app.AppID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if known, ok := c.apps[appID]; ok {
		return known, nil
	}

	path := filepath.Join(c.dir, appID+".yaml")
	data, err := yaml.Marshal(manifestOf(app))
	if err != nil {
		return types.AppInfo{}, fmt.Errorf("failed to encode manifest for %s: %w", appID, err)
	}
	info, err := ParseManifest(path, data)
	if err != nil {
		return types.AppInfo{}, err
	}
	if err := installManifest(c.dir, path, data); err != nil {
		return types.AppInfo{}, err
	}

	c.apps[info.AppID] = info
	c.sources[info.AppID] = path
	c.logger.Info("App registered", zap.String("app_id", info.AppID), zap.String("path", path))
	return info, nil
}

// Unregister forgets an application and deletes the manifest it was read
// from. Unknown ids are ignored.
func (c *Catalog) Unregister(appID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.apps[appID]; !ok {
		return nil
	}
	path := c.sources[appID]
	delete(c.apps, appID)
	delete(c.sources, appID)

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove manifest %s: %w", path, err)
	}
	c.logger.Info("App unregistered", zap.String("app_id", appID), zap.String("path", path))
	return nil
}

// installManifest replaces path through a rename so a concurrent scan never
// reads a partial file.
func installManifest(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to install manifest %s: %w", path, err)
	}
	return nil
}

// Apps returns the installed applications ordered by id
func (c *Catalog) Apps() []types.AppInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	apps := make([]types.AppInfo, 0, len(c.apps))
	for _, app := range c.apps {
		apps = append(apps, app)
	}
	slices.SortFunc(apps, byAppID)
	return apps
}

// Lookup finds an application by id
func (c *Catalog) Lookup(appID string) (types.AppInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	app, ok := c.apps[appID]
	return app, ok
}

// Source returns the manifest path an application was read from
func (c *Catalog) Source(appID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path, ok := c.sources[appID]
	return path, ok
}

// Stats returns catalog statistics
func (c *Catalog) Stats() types.CatalogStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := types.CatalogStats{TotalApps: len(c.apps)}
	for _, app := range c.apps {
		if app.Removable {
			stats.Removable++
		}
	}
	if c.lastScan != nil {
		t := *c.lastScan
		stats.LastScanned = &t
	}
	return stats
}

// diffApps compares two catalog snapshots. Results are ordered by app id.
func diffApps(prev, next map[string]types.AppInfo) Diff {
	var diff Diff
	for appID, app := range next {
		old, ok := prev[appID]
		switch {
		case !ok:
			diff.Installed = append(diff.Installed, app)
		case old != app:
			diff.Updated = append(diff.Updated, app)
		}
	}
	for appID := range prev {
		if _, ok := next[appID]; !ok {
			diff.Uninstalled = append(diff.Uninstalled, appID)
		}
	}

	slices.SortFunc(diff.Installed, byAppID)
	slices.SortFunc(diff.Updated, byAppID)
	sort.Strings(diff.Uninstalled)
	return diff
}

func byAppID(a, b types.AppInfo) int {
	return strings.Compare(a.AppID, b.AppID)
}
