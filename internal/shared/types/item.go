package types

import (
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
)

// ItemType discriminates launcher items. The numeric values are persisted.
type ItemType int

const (
	ItemRoot ItemType = iota
	ItemHomeRoot
	ItemAllAppsRoot
	ItemPage
	ItemIcon
	ItemFolder
	ItemWidget
)

// String returns the string representation of the type
func (t ItemType) String() string {
	switch t {
	case ItemRoot:
		return "root"
	case ItemHomeRoot:
		return "home_root"
	case ItemAllAppsRoot:
		return "all_apps_root"
	case ItemPage:
		return "page"
	case ItemIcon:
		return "icon"
	case ItemFolder:
		return "folder"
	case ItemWidget:
		return "widget"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t >= ItemRoot && t <= ItemWidget
}

// IsContainer reports whether items of this type hold children.
func (t ItemType) IsContainer() bool {
	switch t {
	case ItemRoot, ItemHomeRoot, ItemAllAppsRoot, ItemPage, ItemFolder:
		return true
	}
	return false
}

// Geometry is a grid placement in cells.
type Geometry struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Item is the payload attached to a tree node.
type Item struct {
	ID        id.NodeID `json:"id"`
	Type      ItemType  `json:"type"`
	Label     string    `json:"label,omitempty"`
	IconPath  string    `json:"icon,omitempty"`
	Exec      string    `json:"exec,omitempty"`
	AppID     string    `json:"app_id,omitempty"`
	Badge     int       `json:"badge,omitempty"`
	Removable bool      `json:"removable"`
	Checked   bool      `json:"checked,omitempty"`
	Geometry  Geometry  `json:"geometry"`
	Content   *string   `json:"content,omitempty"`

	// Handle is owned by the rendering layer. The engine stores and clears
	// it but never reads it.
	Handle any `json:"-"`
}

// NewIcon builds an app icon item from catalog data.
func NewIcon(app AppInfo) *Item {
	return &Item{
		Type:      ItemIcon,
		Label:     app.Label,
		IconPath:  app.IconPath,
		Exec:      app.Exec,
		AppID:     app.AppID,
		Removable: app.Removable,
	}
}

// NewContainer builds a structural item (root, page) with no display data.
func NewContainer(t ItemType) *Item {
	return &Item{Type: t}
}

// Clone returns a copy safe to hand outside the engine. The rendering handle
// is not copied.
func (it *Item) Clone() Item {
	out := *it
	out.Handle = nil
	if it.Content != nil {
		c := *it.Content
		out.Content = &c
	}
	return out
}
