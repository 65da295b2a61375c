package launcher

import (
	"context"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/infrastructure/store"
)

// writeThrough persists every node the tree reports as changed. The first
// failure since the last take is kept so the current operation can report
// it; later nodes are still attempted.
type writeThrough struct {
	store Store
	ctx   context.Context
	err   error
}

func (w *writeThrough) Sync(n *tree.Node) {
	if err := w.store.Upsert(w.ctx, rowOf(n)); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *writeThrough) Forget(n *tree.Node) {
	if err := w.store.Delete(w.ctx, n.ID); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *writeThrough) take() error {
	err := w.err
	w.err = nil
	return err
}

func rowOf(n *tree.Node) store.Row {
	r := store.Row{
		ID:          n.ID,
		FirstChild:  n.First,
		NextSibling: n.Next,
	}
	if it := n.Item; it != nil {
		r.Type = it.Type
		r.AppID = it.AppID
		r.X, r.Y, r.W, r.H = it.Geometry.X, it.Geometry.Y, it.Geometry.W, it.Geometry.H
		if it.Content != nil {
			c := *it.Content
			r.Content = &c
		}
	}
	return r
}
