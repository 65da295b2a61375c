package launcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
	"github.com/GriffinCanCode/homescreen/tests/helpers/testutil"
)

func app(appID, label string) types.AppInfo {
	return types.AppInfo{AppID: appID, Label: label, Exec: appID, Removable: true}
}

func apps(n int) []types.AppInfo {
	out := make([]types.AppInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, app(fmt.Sprintf("app.%03d", i), fmt.Sprintf("App %03d", i)))
	}
	return out
}

type fixture struct {
	layout    Layout
	model     *Model
	store     *testutil.MemStore
	catalog   *testutil.StaticCatalog
	presenter *testutil.MockPresenter
}

func newFixture(t *testing.T, layout Layout, catalogApps ...types.AppInfo) *fixture {
	t.Helper()
	f := &fixture{
		layout:    layout,
		store:     testutil.NewMemStore(),
		catalog:   testutil.NewStaticCatalog(catalogApps...),
		presenter: testutil.NewMockPresenter(t),
	}
	f.model = f.reopen(t, zaptest.NewLogger(t))
	require.NoError(t, f.model.Load(context.Background(), FromAppRegistry))
	return f
}

// reopen builds a second model over the same store and catalog.
func (f *fixture) reopen(t require.TestingT, logger *zap.Logger) *Model {
	m, err := New(Options{
		Store:     f.store,
		Catalog:   f.catalog,
		Presenter: f.presenter,
		Layout:    f.layout,
		Logger:    logger,
	})
	require.NoError(t, err)
	return m
}

// quickModel builds a registry-loaded model without test logging, for use
// inside property checks.
func quickModel(t require.TestingT, layout Layout, catalogApps []types.AppInfo) (*Model, *testutil.MemStore) {
	st := testutil.NewMemStore()
	m, err := New(Options{
		Store:   st,
		Catalog: testutil.NewStaticCatalog(catalogApps...),
		Layout:  layout,
	})
	require.NoError(t, err)
	require.NoError(t, m.Load(context.Background(), FromAppRegistry))
	return m, st
}

func smallLayout(list int) Layout {
	return Layout{ListPageCapacity: list, FolderPageCapacity: 12, FolderMaxItems: 12, HomePageCapacity: 4}
}

// pageLabels lists the labels on each page of a container.
func pageLabels(m *Model, container id.NodeID) [][]string {
	var out [][]string
	for _, p := range m.Pages(container) {
		items, _ := m.Children(p)
		labels := make([]string, 0, len(items))
		for _, it := range items {
			labels = append(labels, it.Label)
		}
		out = append(out, labels)
	}
	return out
}

func flatten(pages [][]string) []string {
	var out []string
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}

func pageOf(m *Model, nid id.NodeID) id.NodeID {
	return m.parentOf(nid)
}

// assertPersisted checks that the store holds exactly the live tree.
func assertPersisted(t require.TestingT, m *Model, st *testutil.MemStore) {
	stored, err := st.LoadAll(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, m.Rows(), stored)
}

func assertCapacity(t require.TestingT, m *Model, container id.NodeID, capacity int) {
	for _, p := range m.Pages(container) {
		n, _ := m.tree.Get(p)
		require.LessOrEqual(t, n.Count, capacity, "page %s", p)
	}
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	m, err := New(Options{Store: testutil.NewMemStore(), Layout: Layout{ListPageCapacity: 7}})
	require.NoError(t, err)
	assert.Equal(t, Layout{ListPageCapacity: 7, FolderPageCapacity: 12, FolderMaxItems: 12, HomePageCapacity: 4}, m.Layout())
	assert.Equal(t, Roots{Root: id.None, AllApps: id.None, Home: id.None}, m.Roots())
}

func TestLoadFromRegistryBuildsRoots(t *testing.T) {
	f := newFixture(t, DefaultLayout(), app("b", "Beta"), app("a", "alpha"), app("c", "Gamma"))
	m := f.model

	roots := m.Roots()
	assert.Equal(t, id.RootID, roots.Root)
	root, err := m.Children(roots.Root)
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.Equal(t, types.ItemAllAppsRoot, root[0].Type)
	assert.Equal(t, types.ItemHomeRoot, root[1].Type)

	assert.Equal(t, [][]string{{"alpha", "Beta", "Gamma"}}, pageLabels(m, roots.AllApps))
	assert.Empty(t, m.Pages(roots.Home))
	assertPersisted(t, m, f.store)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, DefaultLayout(), apps(3)...)
	m := f.model

	view, err := m.Snapshot(m.Roots().AllApps)
	require.NoError(t, err)
	assert.Equal(t, types.ItemAllAppsRoot, view.Type)
	require.Len(t, view.Children, 1)
	page := view.Children[0]
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Children, 3)
	assert.Equal(t, "App 002", page.Children[2].Label)

	_, err = m.Snapshot(999)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestHandles(t *testing.T) {
	f := newFixture(t, DefaultLayout(), apps(1)...)
	m := f.model
	nid, ok := m.SearchByAppID("app.000")
	require.True(t, ok)

	require.NoError(t, m.SetHandle(nid, "view-17"))
	h, err := m.Handle(nid)
	require.NoError(t, err)
	assert.Equal(t, "view-17", h)

	// Copies handed out never carry the handle.
	it, err := m.Item(nid)
	require.NoError(t, err)
	assert.Nil(t, it.Handle)

	require.NoError(t, m.ClearHandle(nid))
	h, _ = m.Handle(nid)
	assert.Nil(t, h)
}

func TestRowsMatchStoreRowShape(t *testing.T) {
	f := newFixture(t, DefaultLayout(), apps(2)...)
	rows := f.model.Rows()
	require.NotEmpty(t, rows)
	assert.Equal(t, store.Row{
		ID:          id.RootID,
		Type:        types.ItemRoot,
		FirstChild:  f.model.Roots().AllApps,
		NextSibling: id.None,
	}, rows[0])
}
