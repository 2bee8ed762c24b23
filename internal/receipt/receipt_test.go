package receipt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, string, Data) ([]byte, error) {
	return nil, errors.New("font missing")
}

func sampleData() Data {
	return Data{
		AccountID:   "1790000000000000001",
		TableNumber: 4,
		Customer:    Customer{Name: "Ana Pérez", Email: "ana@example.com", DNI: "30111222"},
		LineItems: []Line{
			{Name: "Milanesa", Quantity: 2, UnitPrice: "450.00", Amount: "900.00"},
			{Name: "Agua", Quantity: 1, UnitPrice: "100.00", Amount: "100.00"},
		},
		Subtotal:        "1000.00",
		DiscountPercent: 10,
		Discount:        "100.00",
		TipPercent:      10,
		Tip:             "90.00",
		Total:           "990.00",
		PaidAt:          time.Date(2024, 5, 1, 21, 30, 0, 0, time.UTC),
	}
}

func TestFileNameIsSlugged(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "la-esquina-mesa-4-1790000000000000001.pdf", FileName("La Esquina", data))

	data.Delivery = true
	assert.Equal(t, "la-esquina-delivery-1790000000000000001.pdf", FileName("La Esquina", data))
}

func TestGenerateWritesPDF(t *testing.T) {
	dir := t.TempDir()
	svc := NewService("MenuYa", PDFRenderer{}, FileStore{Dir: dir}, zap.NewNop(), nil)

	rec, err := svc.Generate(context.Background(), sampleData())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, rec.Name), rec.Path)
	raw, err := os.ReadFile(rec.Path)
	require.NoError(t, err)
	assert.Equal(t, rec.Size, len(raw))
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestGenerateSurfacesRenderFailure(t *testing.T) {
	svc := NewService("MenuYa", failingRenderer{}, FileStore{Dir: t.TempDir()}, nil, nil)

	_, err := svc.Generate(context.Background(), sampleData())
	assert.ErrorContains(t, err, "font missing")
}

func TestGenerateRequiresAccount(t *testing.T) {
	svc := NewService("MenuYa", PDFRenderer{}, FileStore{Dir: t.TempDir()}, nil, nil)

	_, err := svc.Generate(context.Background(), Data{})
	assert.Error(t, err)
}
