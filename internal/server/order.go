package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/triviabees/internal/order/domain"
)

func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.Get(c.Request.Context(), orderdomain.GetOrderRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// MarkOrderPaid settles the order and runs commission distribution.
func (s *Server) MarkOrderPaid(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("id"))
	c.Set(contextOrderIDKey, orderID)

	result, err := s.orderSvc.MarkPaid(c.Request.Context(), orderdomain.MarkPaidRequest{ID: orderID})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
