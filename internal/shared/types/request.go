package types

import "github.com/GriffinCanCode/homescreen/internal/shared/id"

// MoveRequest repositions an item next to a sibling or at an end of a page.
type MoveRequest struct {
	Parent  id.NodeID `json:"parent" binding:"required"`
	Sibling id.NodeID `json:"sibling"`
	Side    string    `json:"side"` // "before" or "after"
}

// FolderRequest merges two icons into a new folder.
type FolderRequest struct {
	Target  id.NodeID `json:"target" binding:"required"`
	Dragged id.NodeID `json:"dragged" binding:"required"`
	Label   string    `json:"label"`
}

// ItemRequest names an item to move into or out of a folder.
type ItemRequest struct {
	Item id.NodeID `json:"item" binding:"required"`
}

// BadgeRequest updates the notification count of an app.
type BadgeRequest struct {
	Count int `json:"count"`
}

// LabelRequest renames an item.
type LabelRequest struct {
	Label string `json:"label" binding:"required"`
}

// CheckRequest toggles selection over a subtree.
type CheckRequest struct {
	Checked bool `json:"checked"`
}

// WidgetRequest places a widget on a home page.
type WidgetRequest struct {
	Page     id.NodeID `json:"page"`
	Label    string    `json:"label"`
	AppID    string    `json:"app_id"`
	Geometry Geometry  `json:"geometry"`
	Content  *string   `json:"content,omitempty"`
}

// Event is an outbound message pushed to stream clients.
type Event struct {
	Type      string    `json:"type"`
	ID        id.NodeID `json:"id"`
	Item      *Item     `json:"item,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Event types
const (
	EventItemUninstalled = "item_uninstalled"
	EventRefresh         = "refresh"
	EventRender          = "render"
)
