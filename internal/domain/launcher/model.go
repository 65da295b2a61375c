package launcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

var (
	ErrInvalidNode     = tree.ErrInvalidNode
	ErrNotAttached     = tree.ErrNotAttached
	ErrNotContainer    = errors.New("destination is not a page container")
	ErrFolderFull      = errors.New("folder is full")
	ErrNotRemovable    = errors.New("item cannot be removed this way")
	ErrWrongType       = errors.New("operation not supported for item type")
	ErrInvalidMove     = errors.New("item cannot be placed there")
	ErrInvalidCapacity = errors.New("page capacity must be positive")
	ErrPersist         = errors.New("store write failed")
)

// Store is the persistence the model writes through to.
type Store interface {
	CreateSchema(ctx context.Context) error
	LoadAll(ctx context.Context) ([]store.Row, error)
	Upsert(ctx context.Context, row store.Row) error
	Delete(ctx context.Context, nid id.NodeID) error
	ReplaceAll(ctx context.Context, rows []store.Row) error
	Flush(ctx context.Context) error
}

// Catalog lists the applications installed on the device. Register and
// Unregister record install notifications so that Reconcile agrees with
// them after a restart.
type Catalog interface {
	Apps() []types.AppInfo
	Lookup(appID string) (types.AppInfo, bool)
	Register(app types.AppInfo) (types.AppInfo, error)
	Unregister(appID string) error
}

// Presenter is the rendering side. The model asks it to attach or drop
// rendering handles and to redraw; it never touches a handle itself.
type Presenter interface {
	ItemUninstalled(item types.Item)
	ViewNeedsRefresh(scope id.NodeID)
	RenderItem(item types.Item)
}

// Metrics receives model-level measurements.
type Metrics interface {
	SetNodes(n int)
	ObserveCascade(pages int)
}

// Layout holds the capacity limits.
type Layout struct {
	ListPageCapacity   int
	FolderPageCapacity int
	FolderMaxItems     int
	HomePageCapacity   int
}

// DefaultLayout returns the stock capacities.
func DefaultLayout() Layout {
	return Layout{
		ListPageCapacity:   20,
		FolderPageCapacity: 12,
		FolderMaxItems:     12,
		HomePageCapacity:   4,
	}
}

// Options configures a Model. Store is required; everything else has a
// working default.
type Options struct {
	Store      Store
	Catalog    Catalog
	Presenter  Presenter
	Layout     Layout
	Comparator Comparator
	Metrics    Metrics
	Logger     *zap.Logger
}

// Roots are the three anchor nodes.
type Roots struct {
	Root    id.NodeID `json:"root"`
	AllApps id.NodeID `json:"all_apps"`
	Home    id.NodeID `json:"home"`
}

// Model owns the launcher tree, its roots and the store it writes through to.
// It is not safe for concurrent use; callers serialize access through the
// event loop.
type Model struct {
	tree      *tree.Tree
	store     Store
	sync      *writeThrough
	catalog   Catalog
	presenter Presenter
	layout    Layout
	compare   Comparator
	metrics   Metrics
	logger    *zap.Logger

	roots Roots
}

// New creates a model with an empty tree. Call Load before use.
func New(opts Options) (*Model, error) {
	if opts.Store == nil {
		return nil, errors.New("launcher: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = emptyCatalog{}
	}
	if opts.Presenter == nil {
		opts.Presenter = nopPresenter{}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	def := DefaultLayout()
	if opts.Layout.ListPageCapacity <= 0 {
		opts.Layout.ListPageCapacity = def.ListPageCapacity
	}
	if opts.Layout.FolderPageCapacity <= 0 {
		opts.Layout.FolderPageCapacity = def.FolderPageCapacity
	}
	if opts.Layout.FolderMaxItems <= 0 {
		opts.Layout.FolderMaxItems = def.FolderMaxItems
	}
	if opts.Layout.HomePageCapacity <= 0 {
		opts.Layout.HomePageCapacity = def.HomePageCapacity
	}
	if opts.Comparator == nil {
		opts.Comparator = DefaultComparator("en")
	}

	logger := opts.Logger.Named("launcher")
	wt := &writeThrough{store: opts.Store, ctx: context.Background()}
	return &Model{
		tree:      tree.New(id.NewSequence(), wt, logger),
		store:     opts.Store,
		sync:      wt,
		catalog:   opts.Catalog,
		presenter: opts.Presenter,
		layout:    opts.Layout,
		compare:   opts.Comparator,
		metrics:   opts.Metrics,
		logger:    logger,
		roots:     Roots{Root: id.None, AllApps: id.None, Home: id.None},
	}, nil
}

// Roots returns the anchor node ids.
func (m *Model) Roots() Roots {
	return m.roots
}

// Layout returns the capacities in effect.
func (m *Model) Layout() Layout {
	return m.layout
}

// Len returns the number of live nodes.
func (m *Model) Len() int {
	return m.tree.Len()
}

// Flush commits pending store writes.
func (m *Model) Flush(ctx context.Context) error {
	return m.store.Flush(ctx)
}

// finish folds any write-through failure recorded during an operation into
// the operation's result. The tree is never rolled back.
func (m *Model) finish(err error) error {
	m.metrics.SetNodes(m.tree.Len())
	if werr := m.sync.take(); werr != nil && err == nil {
		return fmt.Errorf("%w: %w", ErrPersist, werr)
	}
	return err
}

func (m *Model) node(nid id.NodeID) (*tree.Node, error) {
	n, ok := m.tree.Get(nid)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", nid, ErrInvalidNode)
	}
	return n, nil
}

func (m *Model) typeOf(nid id.NodeID) types.ItemType {
	if n, ok := m.tree.Get(nid); ok && n.Item != nil {
		return n.Item.Type
	}
	return -1
}

func (m *Model) parentOf(nid id.NodeID) id.NodeID {
	if n, ok := m.tree.Get(nid); ok {
		return n.Parent
	}
	return id.None
}

type emptyCatalog struct{}

func (emptyCatalog) Apps() []types.AppInfo                           { return nil }
func (emptyCatalog) Lookup(string) (types.AppInfo, bool)             { return types.AppInfo{}, false }
func (emptyCatalog) Register(a types.AppInfo) (types.AppInfo, error) { return a, nil }
func (emptyCatalog) Unregister(string) error                         { return nil }

type nopPresenter struct{}

func (nopPresenter) ItemUninstalled(types.Item) {}
func (nopPresenter) ViewNeedsRefresh(id.NodeID) {}
func (nopPresenter) RenderItem(types.Item)      {}

type nopMetrics struct{}

func (nopMetrics) SetNodes(int)       {}
func (nopMetrics) ObserveCascade(int) {}
