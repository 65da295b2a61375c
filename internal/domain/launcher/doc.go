/*
Package launcher is the homescreen data model.

A Model owns one tree with three anchors:

	root
	├── all-apps root
	│   └── page ...
	│       ├── icon
	│       └── folder
	│           └── page ...
	│               └── icon
	└── home root
	    └── page ...
	        └── widget

Content always sits on pages, and pages enforce a capacity that depends on
where they live (app list, folder, home screen). New content enters through
AppendWithPagination; moves go through Reposition, which pushes overflow
forward page by page. Folders additionally cap their total item count.

Every structural edit is written through to the Store as it happens. A store
failure is reported to the caller wrapped in ErrPersist, but the tree keeps
the change: during a session the tree is authoritative.

Pages and folders drained by a removal are left in place. Callers prune them
with FreeEmptyPages or Tidy.

# Usage

	m, err := launcher.New(launcher.Options{
		Store:     st,
		Catalog:   catalog,
		Presenter: hub,
		Layout:    launcher.DefaultLayout(),
		Logger:    logger,
	})
	if _, err := m.LoadAuto(ctx); err != nil {
		logger.Warn("load", zap.Error(err))
	}
	nid, _ := m.OnAppInstalled(app)
	_ = m.Reposition(nid, page, id.None, tree.Before, 0)

The Model is not safe for concurrent use. The daemon runs every call on the
event loop.
*/
package launcher
