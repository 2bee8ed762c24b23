package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/menuya/internal/apperror"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/observability"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
	"github.com/smallbiznis/menuya/internal/realtime"
	"github.com/smallbiznis/menuya/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) Create(ctx context.Context, req orderdomain.CreateOrderRequest) (orderdomain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) Update(ctx context.Context, req orderdomain.UpdateOrderRequest) (orderdomain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) Get(ctx context.Context, id string) (orderdomain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) List(ctx context.Context, req orderdomain.ListOrderRequest) ([]orderdomain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) Confirm(ctx context.Context, req orderdomain.ConfirmOrderRequest) (orderdomain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) MarkReady(ctx context.Context, req orderdomain.MarkReadyRequest) (orderdomain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) MarkDelivered(ctx context.Context, id string) (orderdomain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) ConfirmReceipt(ctx context.Context, id string) (orderdomain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) Cancel(ctx context.Context, req orderdomain.CancelOrderRequest) (orderdomain.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) ListBillable(ctx context.Context, table int) ([]orderdomain.Order, error) {
	args := m.Called(ctx, table)
	return args.Get(0).([]orderdomain.Order), args.Error(1)
}

func (m *mockOrderService) FinalizeSettled(ctx context.Context, ids []snowflake.ID) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func newTestServer(t *testing.T, orders *mockOrderService) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	enforcer, err := authorization.NewEnforcer(testsupport.OpenDB(t))
	require.NoError(t, err)

	return NewServer(ServerParams{
		Gin:      NewEngine(observability.Config{}),
		Log:      log,
		AuthzSvc: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		OrderSvc: orders,
	})
}

func do(s *Server, method, path, role string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderActorRole, role)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestRequestsWithoutRoleAreUnauthorized(t *testing.T) {
	s := newTestServer(t, &mockOrderService{})

	w := do(s, http.MethodGet, "/api/orders/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodGet, "/api/orders/1", "chef", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMarkReadyIsRoleOwned(t *testing.T) {
	orders := &mockOrderService{}
	s := newTestServer(t, orders)

	w := do(s, http.MethodPost, "/api/orders/42/ready", "cocinero", map[string]string{"station": "bar"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	ready := orderdomain.Order{ID: 42, State: orderdomain.StateEnPreparacion, KitchenReady: true}
	orders.On("MarkReady", mock.Anything, orderdomain.MarkReadyRequest{ID: "42", Station: orderdomain.StationKitchen}).
		Return(ready, nil).Once()

	w = do(s, http.MethodPost, "/api/orders/42/ready", "cocinero", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kitchen_ready":true`)

	w = do(s, http.MethodPost, "/api/orders/42/ready", "mozo", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "station", decodeError(t, w).Errors[0].Field)

	orders.AssertExpectations(t)
}

func TestPatchStateChangeNeedsTheTransitionPermission(t *testing.T) {
	orders := &mockOrderService{}
	s := newTestServer(t, orders)

	// Only the customer confirms receipt, whatever route it arrives on.
	w := do(s, http.MethodPatch, "/api/orders/42", "mozo", map[string]string{"state": "recibido"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(s, http.MethodPatch, "/api/orders/42", "dueno", map[string]string{"state": "recibido"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

	cancelled := orderdomain.Order{ID: 42, State: orderdomain.StateCancelado}
	orders.On("Update", mock.Anything, mock.MatchedBy(func(req orderdomain.UpdateOrderRequest) bool {
		return req.ID == "42" && req.Patch.State != nil && *req.Patch.State == orderdomain.StateCancelado
	})).Return(cancelled, nil).Once()

	w = do(s, http.MethodPatch, "/api/orders/42", "mozo", map[string]string{"state": "cancelado"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"cancelado"`)
	orders.AssertExpectations(t)
}

func TestErrorTaxonomyMapsToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", apperror.Validation("table_number", "must be positive"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("order", "7"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("order is not pendiente", orderdomain.ErrInvalidTransition), http.StatusConflict, "conflict"},
		{"persistence", &apperror.PersistenceError{Message: "db down", Code: "08006"}, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders := &mockOrderService{}
			orders.On("Confirm", mock.Anything, mock.Anything).Return(orderdomain.Order{}, tc.err).Once()
			s := newTestServer(t, orders)

			w := do(s, http.MethodPost, "/api/orders/7/confirm", "mozo", map[string]int{"prep_minutes": 10})
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.kind, decodeError(t, w).Type)
		})
	}
}

func TestCreateOrderPassesCustomerKey(t *testing.T) {
	orders := &mockOrderService{}
	orders.On("Create", mock.Anything, mock.MatchedBy(func(req orderdomain.CreateOrderRequest) bool {
		return req.CustomerKey == "ana@example.com" && req.TableNumber == 4 && len(req.Items) == 1
	})).Return(orderdomain.Order{ID: 9, TableNumber: 4, State: orderdomain.StatePendiente}, nil).Once()
	s := newTestServer(t, orders)

	body := map[string]any{
		"table_number": 4,
		"items":        []map[string]any{{"name": "Milanesa", "category": "Comida", "quantity": 1, "unit_price": "400"}},
	}
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/orders", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActorRole, "cliente")
	req.Header.Set(HeaderCustomerEmail, "Ana@Example.com")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"9"`)
	orders.AssertExpectations(t)
}

func TestClienteListsOnlyOwnOrders(t *testing.T) {
	orders := &mockOrderService{}
	s := newTestServer(t, orders)

	w := do(s, http.MethodGet, "/api/orders", "cliente", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	orders.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestParseDNIEndpoint(t *testing.T) {
	s := newTestServer(t, &mockOrderService{})

	w := do(s, http.MethodPost, "/api/identity/dni", "mozo", map[string]string{
		"barcode": "00412345678@PEREZ@JUAN CARLOS@M@30123456@A@01/02/1985@15/03/2016",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"number":"30123456"`)

	w = do(s, http.MethodPost, "/api/identity/dni", "mozo", map[string]string{"barcode": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dni", decodeError(t, w).Errors[0].Field)
}

func TestStreamWritesEveryView(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	feed := changefeed.NewDispatcher(log)

	var calls atomic.Int64
	hub := realtime.NewHub("tables", []string{changefeed.TableTables}, feed,
		func(context.Context) (int64, error) { return calls.Add(1), nil }, log, nil)
	defer hub.Close()

	r := gin.New()
	r.GET("/stream", func(c *gin.Context) { streamConcern(c, hub, time.Hour, log) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	assert.Equal(t, "1", nextData())

	feed.Dispatch(changefeed.Event{Type: changefeed.EventUpdate, Table: changefeed.TableTables})
	assert.Equal(t, "2", nextData())

	cancel()
	assert.Eventually(t, func() bool { return hub.Len() == 0 && feed.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTipRateLimitPassesWhenDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{}

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.PUT("/tips/:token", s.TipRateLimit(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/tips/abc", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitedMapsToTooManyRequests(t *testing.T) {
	status, payload := mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", payload.Type)
}
