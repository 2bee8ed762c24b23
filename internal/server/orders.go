package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/menuya/internal/authorization"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
)

type createOrderRequest struct {
	TableNumber     int                `json:"table_number"`
	Kind            string             `json:"kind"`
	Items           []orderdomain.Item `json:"items"`
	TotalAmount     *float64           `json:"total_amount"`
	PrepMinutes     *int               `json:"prep_minutes"`
	State           string             `json:"state"`
	DeliveryAddress string             `json:"delivery_address"`
	DeliveryLat     *float64           `json:"delivery_lat"`
	DeliveryLng     *float64           `json:"delivery_lng"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		TableNumber:     req.TableNumber,
		Kind:            orderdomain.Kind(req.Kind),
		Items:           req.Items,
		TotalAmount:     req.TotalAmount,
		PrepMinutes:     req.PrepMinutes,
		State:           orderdomain.State(strings.TrimSpace(req.State)),
		CustomerKey:     customerFromContext(c).Key(),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		DeliveryLat:     req.DeliveryLat,
		DeliveryLng:     req.DeliveryLng,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		TableNumber string   `form:"table_number"`
		Kind        string   `form:"kind"`
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

	req := orderdomain.ListOrderRequest{
		TableNumber: tableNumber,
		Kind:        strings.TrimSpace(query.Kind),
		States:      splitList(query.States),
		Limit:       clampLimit(query.Limit),
	}
	// Customers only ever see their own orders.
	if actor, _ := actorFromContext(c); actor.Role == authorization.RoleCliente {
		key := actor.Customer.Key()
		if key == "" {
			c.JSON(http.StatusOK, gin.H{"data": []orderdomain.Order{}})
			return
		}
		req.CustomerKey = key
	}

	resp, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

var patchStateActions = map[orderdomain.State]string{
	orderdomain.StateEnPreparacion: authorization.ActionOrderConfirm,
	orderdomain.StateEntregado:     authorization.ActionOrderDeliver,
	orderdomain.StateRecibido:      authorization.ActionOrderReceive,
	orderdomain.StateCancelado:     authorization.ActionOrderCancel,
}

func (s *Server) UpdateOrder(c *gin.Context) {
	var patch orderdomain.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	// A state change through PATCH needs the same permission as its dedicated route.
	if patch.State != nil {
		if action, ok := patchStateActions[*patch.State]; ok {
			if err := s.authorizeAction(c, authorization.ObjectOrder, action); err != nil {
				AbortWithError(c, err)
				return
			}
		}
	}

	resp, err := s.orderSvc.Update(c.Request.Context(), orderdomain.UpdateOrderRequest{
		ID:    strings.TrimSpace(c.Param("id")),
		Patch: patch,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type confirmOrderRequest struct {
	PrepMinutes *int `json:"prep_minutes"`
}

func (s *Server) ConfirmOrder(c *gin.Context) {
	var req confirmOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Confirm(c.Request.Context(), orderdomain.ConfirmOrderRequest{
		ID:          strings.TrimSpace(c.Param("id")),
		PrepMinutes: req.PrepMinutes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type markReadyRequest struct {
	Station string `json:"station"`
}

// MarkOrderReady records one station's ready mark. The station defaults to
// the caller's own when the body names none.
func (s *Server) MarkOrderReady(c *gin.Context) {
	var req markReadyRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor, _ := actorFromContext(c)
	station := orderdomain.Station(strings.ToLower(strings.TrimSpace(req.Station)))
	if station == "" {
		station = stationOf(actor.Role)
	}

	var action string
	switch station {
	case orderdomain.StationKitchen:
		action = authorization.ActionOrderMarkKitchenReady
	case orderdomain.StationBar:
		action = authorization.ActionOrderMarkBarReady
	default:
		AbortWithError(c, newValidationError("station", "invalid_station", "station must be kitchen or bar"))
		return
	}
	if err := s.authorizeAction(c, authorization.ObjectOrder, action); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.MarkReady(c.Request.Context(), orderdomain.MarkReadyRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Station: station,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkOrderDelivered(c *gin.Context) {
	resp, err := s.orderSvc.MarkDelivered(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmOrderReceipt(c *gin.Context) {
	resp, err := s.orderSvc.ConfirmReceipt(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Cancel(c.Request.Context(), orderdomain.CancelOrderRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillableOrders(c *gin.Context) {
	number, err := parseTableNumber(c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.ListBillable(c.Request.Context(), number)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func stationOf(role authorization.Role) orderdomain.Station {
	switch role {
	case authorization.RoleCocinero:
		return orderdomain.StationKitchen
	case authorization.RoleBartender:
		return orderdomain.StationBar
	default:
		return ""
	}
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
