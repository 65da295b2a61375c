package launcher

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// Comparator orders two items: negative when a sorts first, zero when they
// are equivalent.
type Comparator func(a, b *types.Item) int

// DefaultComparator compares labels case-insensitively using the collation
// rules of locale. Items without a label sort last. Equal labels compare as
// zero, so a stable sort keeps their current order.
func DefaultComparator(locale string) Comparator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	c := collate.New(tag, collate.IgnoreCase)
	return func(a, b *types.Item) int {
		switch {
		case a.Label == "" && b.Label == "":
			return 0
		case a.Label == "":
			return 1
		case b.Label == "":
			return -1
		}
		return c.CompareString(a.Label, b.Label)
	}
}

// Sort orders the app list, then the inside of every folder. Each level is
// pooled across its pages, sorted stably and dealt back out at its page
// capacity. A nil compare uses the model's comparator.
func (m *Model) Sort(compare Comparator) error {
	if compare == nil {
		compare = m.compare
	}
	err := m.sortAll(compare)
	m.presenter.ViewNeedsRefresh(m.roots.AllApps)
	return m.finish(err)
}

func (m *Model) sortAll(compare Comparator) error {
	if err := m.sortContainer(m.roots.AllApps, m.layout.ListPageCapacity, compare); err != nil {
		return err
	}
	for _, f := range m.folders() {
		if err := m.sortContainer(f, m.layout.FolderPageCapacity, compare); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) sortContainer(container id.NodeID, capacity int, compare Comparator) error {
	pages := m.Pages(container)
	var pool []*tree.Node
	for _, p := range pages {
		for _, c := range m.tree.Children(p) {
			n, _ := m.tree.Get(c)
			pool = append(pool, n)
		}
	}

	less := func(i, j int) bool { return compare(pool[i].Item, pool[j].Item) < 0 }
	if sort.SliceIsSorted(pool, less) && m.packed(pages, len(pool), capacity) {
		return nil
	}

	for _, n := range pool {
		if err := m.tree.Detach(n.ID); err != nil {
			return err
		}
	}
	sort.SliceStable(pool, less)

	for i := 0; i < len(pool); i += capacity {
		var page id.NodeID
		if k := i / capacity; k < len(pages) {
			page = pages[k]
		} else {
			var err error
			if page, err = m.newPage(container); err != nil {
				return err
			}
		}
		for _, n := range pool[i:min(i+capacity, len(pool))] {
			if err := m.tree.Attach(page, n.ID, tree.Append); err != nil {
				return err
			}
		}
	}
	return nil
}

// packed reports whether items are already dealt out the way a sort would
// leave them: every page full except the last used one.
func (m *Model) packed(pages []id.NodeID, items, capacity int) bool {
	for _, p := range pages {
		n, _ := m.tree.Get(p)
		want := min(items, capacity)
		if n.Count != want {
			return false
		}
		items -= want
	}
	return items == 0
}
