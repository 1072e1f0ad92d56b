// Package pdf renders printable sale receipts.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type ReceiptData struct {
	ReceiptNumber string
	ClientName    string
	Contact       string
	PlanName      string
	Currency      string
	Price         float64
	Discount      float64
	Total         float64
	SoldAt        time.Time
	Footer        string
}

type Generator interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

type ReceiptGenerator struct{}

func NewReceiptGenerator() Generator {
	return &ReceiptGenerator{}
}

func (g *ReceiptGenerator) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(25,
		text.NewCol(12, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Date: "+data.SoldAt.Format("2006-01-02 15:04"), props.Text{Top: 4}),
		),
		col.New(6).Add(
			text.New(data.ClientName, props.Text{Style: fontstyle.Bold}),
			text.New(data.Contact, props.Text{Top: 5}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(8, data.PlanName, props.Text{Size: 9}),
		text.NewCol(4, money(data.Currency, data.Price), props.Text{Size: 9, Align: align.Right}),
	)
	if data.Discount != 0 {
		m.AddRow(12,
			text.NewCol(8, "Downtime discount", props.Text{Size: 9}),
			text.NewCol(4, "-"+money(data.Currency, data.Discount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(15,
		col.New(6),
		text.NewCol(3, "Total", props.Text{Size: 11, Style: fontstyle.Bold}),
		text.NewCol(3, money(data.Currency, data.Total), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)

	if data.Footer != "" {
		m.AddRow(20,
			text.NewCol(12, data.Footer, props.Text{Size: 8, Top: 8}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func money(currency string, amount float64) string {
	return fmt.Sprintf("%s %.2f", currency, amount)
}
