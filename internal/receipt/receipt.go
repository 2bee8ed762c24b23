// Package receipt renders the paid bill to PDF and files it on disk.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/menuya/internal/observability/metrics"
	"go.uber.org/zap"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	DNI   string `json:"dni,omitempty"`
}

type Line struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
}

// Data is the payload handed over at payment confirmation. Amounts are
// preformatted so rendering never re-derives totals.
type Data struct {
	AccountID       string    `json:"account_id"`
	OrderID         string    `json:"order_id,omitempty"`
	TableNumber     int       `json:"table_number"`
	Delivery        bool      `json:"delivery"`
	Customer        Customer  `json:"customer"`
	LineItems       []Line    `json:"line_items"`
	Subtotal        string    `json:"subtotal"`
	DiscountPercent int       `json:"discount_percent"`
	Discount        string    `json:"discount"`
	TipPercent      int       `json:"tip_percent"`
	Tip             string    `json:"tip"`
	Total           string    `json:"total"`
	PaidAt          time.Time `json:"paid_at"`
}

type Receipt struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int    `json:"size"`
}

type Generator interface {
	Generate(ctx context.Context, data Data) (Receipt, error)
}

type Renderer interface {
	Render(ctx context.Context, restaurant string, data Data) ([]byte, error)
}

type Store interface {
	Save(ctx context.Context, name string, doc []byte) (string, error)
}

type Service struct {
	restaurant string
	renderer   Renderer
	store      Store
	log        *zap.Logger
	lifecycle  *metrics.Lifecycle
}

func NewService(restaurant string, renderer Renderer, store Store, log *zap.Logger, lifecycle *metrics.Lifecycle) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		restaurant: restaurant,
		renderer:   renderer,
		store:      store,
		log:        log.Named("receipt"),
		lifecycle:  lifecycle,
	}
}

func (s *Service) Generate(ctx context.Context, data Data) (Receipt, error) {
	if data.AccountID == "" {
		return Receipt{}, errors.New("receipt: account id is required")
	}

	doc, err := s.renderer.Render(ctx, s.restaurant, data)
	if err != nil {
		s.lifecycle.Receipt(metrics.ResultFailed)
		return Receipt{}, fmt.Errorf("render receipt: %w", err)
	}

	name := FileName(s.restaurant, data)
	path, err := s.store.Save(ctx, name, doc)
	if err != nil {
		s.lifecycle.Receipt(metrics.ResultFailed)
		return Receipt{}, fmt.Errorf("store receipt: %w", err)
	}

	s.lifecycle.Receipt(metrics.ResultOK)
	s.log.Info("receipt generated",
		zap.String("account_id", data.AccountID),
		zap.String("path", path),
		zap.Int("bytes", len(doc)),
	)
	return Receipt{Name: name, Path: path, Size: len(doc)}, nil
}

// FileName is a filesystem-safe, unique name for the receipt of one bill.
func FileName(restaurant string, data Data) string {
	where := fmt.Sprintf("mesa %d", data.TableNumber)
	if data.Delivery {
		where = "delivery"
	}
	return slug.Make(fmt.Sprintf("%s %s %s", restaurant, where, data.AccountID)) + ".pdf"
}
