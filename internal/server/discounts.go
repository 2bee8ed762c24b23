package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
)

type gameResultRequest struct {
	Game        string `json:"game"`
	Score       int    `json:"score"`
	WonFirstTry bool   `json:"won_first_try"`
}

func (s *Server) RecordGameResult(c *gin.Context) {
	var req gameResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.discountSvc.RecordGameResult(c.Request.Context(), discountdomain.RecordGameResultRequest{
		Identity:    customerFromContext(c),
		Game:        strings.TrimSpace(req.Game),
		Score:       req.Score,
		WonFirstTry: req.WonFirstTry,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordGameLoss(c *gin.Context) {
	resp, err := s.discountSvc.RecordLoss(c.Request.Context(), customerFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCurrentDiscount(c *gin.Context) {
	resp, err := s.discountSvc.Current(c.Request.Context(), customerFromContext(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListGameResults(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.discountSvc.ListResults(c.Request.Context(), customerFromContext(c), clampLimit(query.Limit))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
