package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// SortAll sorts the app list and every folder
func (h *Handlers) SortAll(c *gin.Context) {
	h.run(c, func() (any, error) {
		return nil, h.model.Sort(nil)
	})
}

// Tidy frees empty pages and drained folders
func (h *Handlers) Tidy(c *gin.Context) {
	h.run(c, func() (any, error) {
		return h.model.Tidy()
	})
}

// Rebuild rewrites the whole store from the in-memory tree
func (h *Handlers) Rebuild(c *gin.Context) {
	ctx := c.Request.Context()
	h.run(c, func() (any, error) {
		if err := h.model.Rebuild(ctx); err != nil {
			return nil, err
		}
		return gin.H{"rows": len(h.model.Rows())}, nil
	})
}

// AddHomePage appends an empty widget page
func (h *Handlers) AddHomePage(c *gin.Context) {
	h.run(c, func() (any, error) {
		pid, err := h.model.AddHomePage()
		if err != nil {
			return nil, err
		}
		return gin.H{"id": pid}, nil
	})
}

// AddWidget places a widget on the home screen
func (h *Handlers) AddWidget(c *gin.Context) {
	var req types.WidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	item := types.Item{
		Label:    req.Label,
		AppID:    req.AppID,
		Geometry: req.Geometry,
		Content:  req.Content,
	}
	h.run(c, func() (any, error) {
		wid, err := h.model.AddWidget(optionalNode(req.Page), item)
		if err != nil {
			return nil, err
		}
		return gin.H{"id": wid}, nil
	})
}

// RemoveWidget deletes a widget
func (h *Handlers) RemoveWidget(c *gin.Context) {
	wid, ok := nodeParam(c)
	if !ok {
		return
	}
	h.run(c, func() (any, error) {
		return nil, h.model.RemoveWidget(wid)
	})
}

