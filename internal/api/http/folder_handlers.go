package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// MergeFolder drops one icon onto another, creating a folder
func (h *Handlers) MergeFolder(c *gin.Context) {
	var req types.FolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "target and dragged are required")
		return
	}
	h.run(c, func() (any, error) {
		fid, err := h.model.MergeIntoFolder(req.Target, req.Dragged, req.Label)
		if err != nil {
			return nil, err
		}
		return gin.H{"id": fid}, nil
	})
}

// DeleteFolder flattens a folder onto the app list
func (h *Handlers) DeleteFolder(c *gin.Context) {
	fid, ok := nodeParam(c)
	if !ok {
		return
	}
	h.run(c, func() (any, error) {
		moved, err := h.model.DeleteFolder(fid)
		if err != nil {
			return nil, err
		}
		return gin.H{"moved": moved}, nil
	})
}

// AddToFolder moves an icon into a folder
func (h *Handlers) AddToFolder(c *gin.Context) {
	fid, ok := nodeParam(c)
	if !ok {
		return
	}
	var req types.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "item is required")
		return
	}
	h.run(c, func() (any, error) {
		return nil, h.model.MoveIntoFolder(fid, req.Item)
	})
}

// ReleaseFromFolder moves an icon out of a folder onto the app list
func (h *Handlers) ReleaseFromFolder(c *gin.Context) {
	fid, ok := nodeParam(c)
	if !ok {
		return
	}
	var req types.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "item is required")
		return
	}
	h.run(c, func() (any, error) {
		return nil, h.model.DetachFromFolder(fid, req.Item)
	})
}
