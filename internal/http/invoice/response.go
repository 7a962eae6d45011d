package invoice

import (
	"github.com/elpasofurniture/invoicer/internal/invoice"
)

type ackResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

type totalsResponse struct {
	Subtotal float64               `json:"subtotal"`
	Tax      float64               `json:"tax"`
	Total    float64               `json:"total"`
	TaxRate  float64               `json:"taxRate"`
	Items    []invoice.LineItem    `json:"items"`
	Display  totalsDisplayResponse `json:"display"`
}

type totalsDisplayResponse struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

func toTotalsResponse(items []invoice.LineItem, loc invoice.TaxLocation, t invoice.Totals) totalsResponse {
	return totalsResponse{
		Subtotal: t.Subtotal.InexactFloat64(),
		Tax:      t.Tax.InexactFloat64(),
		Total:    t.Total.InexactFloat64(),
		TaxRate:  invoice.TaxRate(loc).InexactFloat64(),
		Items:    invoice.FilterItems(items),
		Display: totalsDisplayResponse{
			Subtotal: invoice.FormatCurrency(t.Subtotal),
			Tax:      invoice.FormatCurrency(t.Tax),
			Total:    invoice.FormatCurrency(t.Total),
		},
	}
}
