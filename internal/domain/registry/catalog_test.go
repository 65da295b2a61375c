package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCatalogScan(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "mail/app.yaml", "id: mail\nlabel: Mail\n")
	writeManifest(t, dir, "notes.json", `{"id":"notes","label":"Notes","removable":false}`)
	writeManifest(t, dir, "deep/nested/clock.toml", "id = \"clock\"\nlabel = \"Clock\"\n")
	writeManifest(t, dir, "broken.json", `{"id":`)
	writeManifest(t, dir, "README.md", "# not a manifest")

	c := NewCatalog(dir, zaptest.NewLogger(t))
	diff, err := c.Scan(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, app := range c.Apps() {
		ids = append(ids, app.AppID)
	}
	assert.Equal(t, []string{"clock", "mail", "notes"}, ids)
	assert.Len(t, diff.Installed, 3)
	assert.Empty(t, diff.Uninstalled)

	app, ok := c.Lookup("notes")
	require.True(t, ok)
	assert.Equal(t, "Notes", app.Label)
	assert.False(t, app.Removable)

	_, ok = c.Lookup("broken")
	assert.False(t, ok)

	src, ok := c.Source("clock")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "deep/nested/clock.toml"), src)

	stats := c.Stats()
	assert.Equal(t, 3, stats.TotalApps)
	assert.Equal(t, 2, stats.Removable)
	assert.NotNil(t, stats.LastScanned)
}

func TestCatalogRescanDiff(t *testing.T) {
	dir := t.TempDir()
	mail := writeManifest(t, dir, "mail.yaml", "id: mail\nlabel: Mail\n")
	writeManifest(t, dir, "notes.yaml", "id: notes\nlabel: Notes\n")

	c := NewCatalog(dir, zaptest.NewLogger(t))
	_, err := c.Scan(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(mail))
	writeManifest(t, dir, "notes.yaml", "id: notes\nlabel: Notebook\n")
	writeManifest(t, dir, "clock.yaml", "id: clock\n")

	diff, err := c.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, diff.Installed, 1)
	assert.Equal(t, "clock", diff.Installed[0].AppID)
	assert.Equal(t, []string{"mail"}, diff.Uninstalled)
	require.Len(t, diff.Updated, 1)
	assert.Equal(t, "Notebook", diff.Updated[0].Label)

	diff, err = c.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, diff.Empty())
}

func TestCatalogDuplicateIDsKeepFirst(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.yaml", "id: mail\nlabel: First\n")
	writeManifest(t, dir, "b.yaml", "id: mail\nlabel: Second\n")

	c := NewCatalog(dir, zaptest.NewLogger(t))
	_, err := c.Scan(context.Background())
	require.NoError(t, err)

	app, ok := c.Lookup("mail")
	require.True(t, ok)
	assert.Equal(t, "First", app.Label)
	assert.Len(t, c.Apps(), 1)
}

func TestCatalogMissingDirectory(t *testing.T) {
	c := NewCatalog(filepath.Join(t.TempDir(), "absent"), nil)
	diff, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, diff.Empty())
	assert.Empty(t, c.Apps())
}

func TestCatalogScanCanceled(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "mail.yaml", "id: mail\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCatalog(dir, nil)
	_, err := c.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.Apps(), "a failed scan leaves the catalog untouched")
}

func TestCatalogRegisterWritesManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "mail.yaml", "id: mail\nlabel: Mail\nremovable: false\n")

	c := NewCatalog(dir, zaptest.NewLogger(t))
	_, err := c.Scan(context.Background())
	require.NoError(t, err)

	// Known ids keep the catalog's version.
	known, err := c.Register(types.AppInfo{AppID: "mail", Label: "Other", Removable: true})
	require.NoError(t, err)
	assert.Equal(t, "Mail", known.Label)
	assert.False(t, known.Removable)

	notes, err := c.Register(types.AppInfo{AppID: "org.example.notes", Label: "<b>Notes</b>", Exec: "notes", Removable: true, Badge: 2})
	require.NoError(t, err)
	assert.Equal(t, "Notes", notes.Label)
	src, ok := c.Source("org.example.notes")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "org.example.notes.yaml"), src)

	// A fresh catalog over the same directory sees the registration, and a
	// rescan of the first one reports nothing new.
	restarted := NewCatalog(dir, zaptest.NewLogger(t))
	_, err = restarted.Scan(context.Background())
	require.NoError(t, err)
	got, ok := restarted.Lookup("org.example.notes")
	require.True(t, ok)
	assert.Equal(t, notes, got)

	diff, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, diff.Empty())

	_, err = c.Register(types.AppInfo{AppID: "../escape", Label: "x"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCatalogUnregisterRemovesManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "apps/clock.toml", "id = \"clock\"\nlabel = \"Clock\"\n")

	c := NewCatalog(dir, zaptest.NewLogger(t))
	_, err := c.Scan(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Unregister("clock"))
	_, ok := c.Lookup("clock")
	assert.False(t, ok)
	assert.NoFileExists(t, path)

	require.NoError(t, c.Unregister("clock"))

	diff, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, diff.Empty())
}

func TestCatalogRegisterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing", "apps")
	c := NewCatalog(dir, zaptest.NewLogger(t))

	_, err := c.Register(types.AppInfo{AppID: "mail", Label: "Mail"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "mail.yaml"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
