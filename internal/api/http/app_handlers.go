package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

// InstallApp handles an app-installed notification
func (h *Handlers) InstallApp(c *gin.Context) {
	var app types.AppInfo
	if err := c.ShouldBindJSON(&app); err != nil {
		badRequest(c, "app id is required")
		return
	}
	h.run(c, func() (any, error) {
		nid, err := h.model.OnAppInstalled(app)
		if err != nil {
			return nil, err
		}
		return gin.H{"id": nid, "app_id": app.AppID}, nil
	})
}

// UninstallApp handles an app-removed notification
func (h *Handlers) UninstallApp(c *gin.Context) {
	appID := c.Param("appId")
	h.run(c, func() (any, error) {
		return nil, h.model.OnAppUninstalled(appID)
	})
}

// SetBadge updates an app's notification count
func (h *Handlers) SetBadge(c *gin.Context) {
	appID := c.Param("appId")
	var req types.BadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 0 {
		badRequest(c, "count must be a non-negative integer")
		return
	}
	h.run(c, func() (any, error) {
		return nil, h.model.OnBadgeChanged(appID, req.Count)
	})
}
