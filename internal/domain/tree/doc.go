// Package tree implements the ordered multi-child node structure underneath
// the launcher.
//
// Nodes live in an arena keyed by id.NodeID. Every link (parent, first and
// last child, previous and next sibling) is an identity rather than a
// pointer, which matches the stored first-child/next-sibling layout one to
// one and keeps detached or released nodes from dangling.
//
// The tree has no domain knowledge. It attaches, detaches, inserts relative
// to a sibling, walks depth-first and releases nodes. Each structural
// mutation reports every node whose persisted links changed to a Syncer
// before returning (write-through); there is no dirty tracking.
//
// Example Usage:
//
//	t := tree.New(id.NewSequence(), syncer, logger)
//	page := t.NewNode(types.NewContainer(types.ItemPage))
//	icon := t.NewNode(types.NewIcon(app))
//	err := t.Attach(page.ID, icon.ID, tree.Append)
package tree
