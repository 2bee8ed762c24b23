package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListTables(c *gin.Context) {
	resp, err := s.tableSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTable(c *gin.Context) {
	number, err := parseTableNumber(c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.tableSvc.Get(c.Request.Context(), number)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OccupyTable(c *gin.Context) {
	number, err := parseTableNumber(c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.tableSvc.Occupy(c.Request.Context(), number)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReleaseTable(c *gin.Context) {
	number, err := parseTableNumber(c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.tableSvc.Release(c.Request.Context(), number)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
