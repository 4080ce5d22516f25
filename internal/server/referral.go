package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
)

type validateReferralRequest struct {
	ReferralCode string `json:"referralCode" binding:"required,max=64"`
}

func (s *Server) ValidateReferral(c *gin.Context) {
	var req validateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	result, err := s.referralSvc.ValidateCode(c.Request.Context(), referraldomain.ValidateCodeRequest{
		Code: req.ReferralCode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
