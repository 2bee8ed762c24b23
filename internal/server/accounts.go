package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/menuya/internal/account/domain"
	"github.com/smallbiznis/menuya/internal/identity"
)

type requestAccountRequest struct {
	TableNumber int `json:"table_number"`
}

// RequestAccount returns the table's active bill, creating it when the table
// has none.
func (s *Server) RequestAccount(c *gin.Context) {
	var req requestAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.GetOrCreateActive(c.Request.Context(), accountdomain.GetOrCreateRequest{
		TableNumber: req.TableNumber,
		Customer:    customerFromContext(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type requestDeliveryAccountRequest struct {
	OrderID string `json:"order_id"`
}

func (s *Server) RequestDeliveryAccount(c *gin.Context) {
	var req requestDeliveryAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.GetOrCreateForDeliveryOrder(c.Request.Context(), accountdomain.DeliveryAccountRequest{
		OrderID:  strings.TrimSpace(req.OrderID),
		Customer: customerFromContext(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAccounts(c *gin.Context) {
	var query struct {
		TableNumber string   `form:"table_number"`
		States      []string `form:"state"`
		Limit       int      `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tableNumber, err := parseOptionalInt(query.TableNumber)
	if err != nil {
		AbortWithError(c, newValidationError("table_number", "invalid_table_number", "invalid table number"))
		return
	}

	resp, err := s.accountSvc.List(c.Request.Context(), accountdomain.ListAccountRequest{
		TableNumber: tableNumber,
		States:      splitList(query.States),
		Limit:       clampLimit(query.Limit),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAccountByID(c *gin.Context) {
	resp, err := s.accountSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type enableTipRequest struct {
	Token string `json:"token"`
}

// EnableAccountTip opens the tip step. A token is minted when none is sent;
// it is what the customer's QR code carries.
func (s *Server) EnableAccountTip(c *gin.Context) {
	var req enableTipRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.EnableTip(c.Request.Context(), accountdomain.EnableTipRequest{
		ID:    strings.TrimSpace(c.Param("id")),
		Token: strings.TrimSpace(req.Token),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setTipRequest struct {
	Percent *int `json:"percent"`
}

func (s *Server) SetAccountTip(c *gin.Context) {
	var req setTipRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Percent == nil {
		AbortWithError(c, newValidationError("percent", "invalid_percent", "percent is required"))
		return
	}

	resp, err := s.accountSvc.SetTipPercent(c.Request.Context(), accountdomain.SetTipRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Percent: *req.Percent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetTipByToken(c *gin.Context) {
	var req setTipRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Percent == nil {
		AbortWithError(c, newValidationError("percent", "invalid_percent", "percent is required"))
		return
	}

	resp, err := s.accountSvc.SetTipPercentByToken(c.Request.Context(), accountdomain.SetTipByTokenRequest{
		Token:   strings.TrimSpace(c.Param("token")),
		Percent: *req.Percent,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PayAccount(c *gin.Context) {
	resp, err := s.accountSvc.Pay(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmAccountPayment(c *gin.Context) {
	resp, err := s.accountSvc.ConfirmPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type parseDNIRequest struct {
	Barcode string `json:"barcode"`
}

// ParseDNI reads a scanned national ID so the client can prefill the
// customer's name and document number.
func (s *Server) ParseDNI(c *gin.Context) {
	var req parseDNIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := identity.ParseDNI(req.Barcode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
