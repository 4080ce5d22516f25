package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type checkEligibilityRequest struct {
	UserUUID string `json:"user_uuid" binding:"max=128"`
}

// CheckMarketplaceEligibility answers with a bare JSON boolean.
func (s *Server) CheckMarketplaceEligibility(c *gin.Context) {
	var req checkEligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	result := s.eligibilitySvc.Check(c.Request.Context(), strings.TrimSpace(req.UserUUID))
	c.JSON(http.StatusOK, result.IsEligible)
}

func (s *Server) GetMarketplaceEligibility(c *gin.Context) {
	result := s.eligibilitySvc.Check(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	c.JSON(http.StatusOK, result)
}
