package receipt

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFRenderer struct{}

func (PDFRenderer) Render(ctx context.Context, restaurant string, data Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, restaurant, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Comprobante", props.Text{
			Size:  12,
			Align: align.Right,
		}),
	)

	where := fmt.Sprintf("Mesa %d", data.TableNumber)
	if data.Delivery {
		where = "Delivery"
	}
	m.AddRow(25,
		col.New(6).Add(
			text.New("Cuenta: "+data.AccountID, props.Text{Top: 0}),
			text.New(where, props.Text{Top: 5}),
			text.New("Pagado: "+data.PaidAt.Format("02/01/2006 15:04"), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Cliente", props.Text{Style: fontstyle.Bold}),
			text.New(data.Customer.Name, props.Text{Top: 5}),
			text.New(data.Customer.Email, props.Text{Top: 10}),
			text.New(dniLine(data.Customer.DNI), props.Text{Top: 15}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Detalle", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Cant.", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Precio", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Importe", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range data.LineItems {
		m.AddRow(8,
			text.NewCol(6, line.Name, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	totalRow := func(label, value string, style fontstyle.Type) {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}
	totalRow("Subtotal", data.Subtotal, fontstyle.Normal)
	if data.DiscountPercent > 0 {
		totalRow(fmt.Sprintf("Descuento %d%%", data.DiscountPercent), "-"+data.Discount, fontstyle.Normal)
	}
	if data.TipPercent > 0 {
		totalRow(fmt.Sprintf("Propina %d%%", data.TipPercent), data.Tip, fontstyle.Normal)
	}
	totalRow("Total", data.Total, fontstyle.Bold)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func dniLine(dni string) string {
	if dni == "" {
		return ""
	}
	return "DNI " + dni
}
