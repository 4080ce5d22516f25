package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
)

const contextOrderIDKey = "order_id"

type distributeCommissionsRequest struct {
	OrderID string `json:"orderId" binding:"required,max=128"`
}

type distributeCommissionsResponse struct {
	Success            bool    `json:"success"`
	DistributedCount   int     `json:"distributedCount"`
	TotalDistributed   float64 `json:"totalDistributed"`
	AlreadyDistributed bool    `json:"alreadyDistributed"`
}

func (s *Server) DistributeCommissions(c *gin.Context) {
	var req distributeCommissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortDistribution(c, bindError(err))
		return
	}

	orderID := strings.TrimSpace(req.OrderID)
	c.Set(contextOrderIDKey, orderID)

	result, err := s.commissionSvc.Distribute(c.Request.Context(), commissiondomain.DistributeRequest{
		OrderID: orderID,
	})
	if err != nil {
		abortDistribution(c, err)
		return
	}

	c.JSON(http.StatusOK, distributeCommissionsResponse{
		Success:            true,
		DistributedCount:   result.DistributedCount,
		TotalDistributed:   result.TotalDistributed.InexactFloat64(),
		AlreadyDistributed: result.AlreadyDistributed,
	})
}

// abortDistribution reports every domain failure as 400. Infrastructure
// failures keep their 5xx status.
func abortDistribution(c *gin.Context, err error) {
	status, payload := mapError(err)
	if status < http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, newErrorResponse(payload))
}

func (s *Server) ListUserCommissions(c *gin.Context) {
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.ListByUser(c.Request.Context(), commissiondomain.ListCommissionRequest{
		UserID:    strings.TrimSpace(c.Param("id")),
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
