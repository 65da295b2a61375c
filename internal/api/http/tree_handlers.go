package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/homescreen/internal/domain/tree"
	"github.com/GriffinCanCode/homescreen/internal/shared/id"
	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// Tree returns the nested view of the whole tree, or of ?root=<id>.
func (h *Handlers) Tree(c *gin.Context) {
	root := id.None
	if q := c.Query("root"); q != "" {
		nid, err := id.Parse(q)
		if err != nil || !nid.Valid() {
			badRequest(c, "invalid root id")
			return
		}
		root = nid
	}

	h.run(c, func() (any, error) {
		if root == id.None {
			root = h.model.Roots().Root
		}
		return h.model.Snapshot(root)
	})
}

// GetItem returns one item
func (h *Handlers) GetItem(c *gin.Context) {
	nid, ok := nodeParam(c)
	if !ok {
		return
	}
	h.run(c, func() (any, error) {
		return h.model.Item(nid)
	})
}

// GetChildren returns the direct children of an item
func (h *Handlers) GetChildren(c *gin.Context) {
	nid, ok := nodeParam(c)
	if !ok {
		return
	}
	h.run(c, func() (any, error) {
		items, err := h.model.Children(nid)
		if err != nil {
			return nil, err
		}
		return gin.H{"items": items, "count": len(items)}, nil
	})
}

// MoveItem repositions an item next to a sibling or at an end of a page
func (h *Handlers) MoveItem(c *gin.Context) {
	nid, ok := nodeParam(c)
	if !ok {
		return
	}
	var req types.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	side, ok := tree.ParseSide(req.Side)
	if !ok {
		badRequest(c, `side must be "before" or "after"`)
		return
	}

	h.run(c, func() (any, error) {
		return nil, h.model.Reposition(nid, req.Parent, optionalNode(req.Sibling), side, 0)
	})
}

// RenameItem changes a folder's label
func (h *Handlers) RenameItem(c *gin.Context) {
	nid, ok := nodeParam(c)
	if !ok {
		return
	}
	var req types.LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "label is required")
		return
	}
	h.run(c, func() (any, error) {
		return nil, h.model.Rename(nid, req.Label)
	})
}

// SetGeometry moves or resizes a widget or folder on its grid
func (h *Handlers) SetGeometry(c *gin.Context) {
	nid, ok := nodeParam(c)
	if !ok {
		return
	}
	var geom types.Geometry
	if err := c.ShouldBindJSON(&geom); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	h.run(c, func() (any, error) {
		return nil, h.model.SetGeometry(nid, geom)
	})
}

// CheckItem sets the checked flag over an item's subtree
func (h *Handlers) CheckItem(c *gin.Context) {
	nid, ok := nodeParam(c)
	if !ok {
		return
	}
	var req types.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	h.run(c, func() (any, error) {
		changed, err := h.model.CheckSubtree(nid, req.Checked)
		if err != nil {
			return nil, err
		}
		return gin.H{"changed": changed}, nil
	})
}

// CountChecked returns how many icons are checked
func (h *Handlers) CountChecked(c *gin.Context) {
	h.run(c, func() (any, error) {
		return gin.H{"count": h.model.CountChecked()}, nil
	})
}

// Search finds the icon of an app
func (h *Handlers) Search(c *gin.Context) {
	appID := c.Query("app_id")
	if appID == "" {
		badRequest(c, "app_id is required")
		return
	}

	var (
		nid   id.NodeID
		found bool
	)
	if err := h.loop.Do(c.Request.Context(), func() {
		nid, found = h.model.SearchByAppID(appID)
	}); err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found", "app_id": appID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": nid, "app_id": appID})
}
