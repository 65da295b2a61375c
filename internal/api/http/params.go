package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/homescreen/internal/shared/id"
)

// nodeParam parses the :id path parameter. It writes a 400 and reports
// false when the value is not a positive integer.
func nodeParam(c *gin.Context) (id.NodeID, bool) {
	nid, err := id.Parse(c.Param("id"))
	if err != nil || !nid.Valid() {
		badRequest(c, "invalid item id")
		return id.None, false
	}
	return nid, true
}

// optionalNode treats zero as "no node".
func optionalNode(nid id.NodeID) id.NodeID {
	if nid == 0 {
		return id.None
	}
	return nid
}
