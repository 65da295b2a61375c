// Package testutil provides testing utilities and helpers for backend tests.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// MockPresenter is a mock implementation of launcher.Presenter for testing.
type MockPresenter struct {
	mock.Mock
}

// ItemUninstalled mocks the ItemUninstalled method.
func (m *MockPresenter) ItemUninstalled(item types.Item) {
	m.Called(item)
}

// ViewNeedsRefresh mocks the ViewNeedsRefresh method.
func (m *MockPresenter) ViewNeedsRefresh(scope id.NodeID) {
	m.Called(scope)
}

// RenderItem mocks the RenderItem method.
func (m *MockPresenter) RenderItem(item types.Item) {
	m.Called(item)
}

// NewMockPresenter creates a presenter mock that accepts every call.
func NewMockPresenter(t *testing.T) *MockPresenter {
	t.Helper()
	m := new(MockPresenter)
	m.On("ItemUninstalled", mock.Anything).Maybe()
	m.On("ViewNeedsRefresh", mock.Anything).Maybe()
	m.On("RenderItem", mock.Anything).Maybe()
	return m
}

// MemStore is an in-memory launcher store. Setting Err makes every write
// fail with it while still counting the attempt.
type MemStore struct {
	mu      sync.Mutex
	rows    map[id.NodeID]store.Row
	Err     error
	Writes  int
	Deletes int
	Flushes int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[id.NodeID]store.Row)}
}

func (s *MemStore) CreateSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes++
	if s.Err != nil {
		return s.Err
	}
	s.rows = map[id.NodeID]store.Row{id.RootID: store.RootRow()}
	return nil
}

func (s *MemStore) LoadAll(ctx context.Context) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Upsert(ctx context.Context, row store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes++
	if s.Err != nil {
		return s.Err
	}
	s.rows[row.ID] = row
	return nil
}

func (s *MemStore) Delete(ctx context.Context, nid id.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if s.Err != nil {
		return s.Err
	}
	delete(s.rows, nid)
	return nil
}

func (s *MemStore) ReplaceAll(ctx context.Context, rows []store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes++
	if s.Err != nil {
		return s.Err
	}
	s.rows = make(map[id.NodeID]store.Row, len(rows))
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return nil
}

func (s *MemStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Flushes++
	return nil
}

// Row returns one stored row.
func (s *MemStore) Row(nid id.NodeID) (store.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[nid]
	return r, ok
}

// Put writes a row directly, bypassing the failure switch.
func (s *MemStore) Put(rows ...store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows[r.ID] = r
	}
}

// Len returns the number of stored rows.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// StaticCatalog is an in-memory app catalog.
type StaticCatalog struct {
	mu   sync.Mutex
	apps []types.AppInfo
	err  error
}

// NewStaticCatalog creates a catalog holding apps.
func NewStaticCatalog(apps ...types.AppInfo) *StaticCatalog {
	return &StaticCatalog{apps: apps}
}

func (c *StaticCatalog) Apps() []types.AppInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.AppInfo(nil), c.apps...)
}

func (c *StaticCatalog) Lookup(appID string) (types.AppInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.apps {
		if a.AppID == appID {
			return a, true
		}
	}
	return types.AppInfo{}, false
}

func (c *StaticCatalog) Register(app types.AppInfo) (types.AppInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return types.AppInfo{}, c.err
	}
	for _, a := range c.apps {
		if a.AppID == app.AppID {
			return a, nil
		}
	}
	c.apps = append(c.apps, app)
	return app, nil
}

func (c *StaticCatalog) Unregister(appID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.apps = slices.DeleteFunc(c.apps, func(a types.AppInfo) bool { return a.AppID == appID })
	return nil
}

// FailWith makes Register and Unregister return err; nil restores them.
func (c *StaticCatalog) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Set replaces the catalog content.
func (c *StaticCatalog) Set(apps ...types.AppInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apps = apps
}

// CreateTestApp creates an app with default values.
func CreateTestApp(t *testing.T, appID, label string) types.AppInfo {
	t.Helper()
	return types.AppInfo{
		AppID:     appID,
		Label:     label,
		IconPath:  "/icons/" + appID + ".png",
		Exec:      appID,
		Removable: true,
	}
}

// CreateTestApps creates n apps labelled "App 000", "App 001", ...
func CreateTestApps(t *testing.T, n int) []types.AppInfo {
	t.Helper()
	apps := make([]types.AppInfo, 0, n)
	for i := 0; i < n; i++ {
		apps = append(apps, CreateTestApp(t, fmt.Sprintf("app.%03d", i), fmt.Sprintf("App %03d", i)))
	}
	return apps
}
