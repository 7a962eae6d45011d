package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaxLocation selects whether the regional sales tax applies.
type TaxLocation string

const (
	TaxLocationTexas TaxLocation = "texas"
	TaxLocationOther TaxLocation = "other"
)

// PaymentMethod is how the customer pays. The zero value means not recorded.
type PaymentMethod string

const (
	PaymentUnset     PaymentMethod = ""
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentFinancing PaymentMethod = "financing"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentUnset, PaymentCash, PaymentCard, PaymentFinancing:
		return true
	}

	return false
}

// Label is the display name printed on documents.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCash:
		return "Cash"
	case PaymentCard:
		return "Card"
	case PaymentFinancing:
		return "Financing"
	}

	return string(p)
}

var financingLabels = map[string]string{
	"progressive": "Progressive Leasing",
	"acima":       "Acima",
	"snap":        "Snap Finance",
	"american":    "American First Finance",
	"synchrony":   "Synchrony Bank",
}

// FinancingCompanyLabel maps a financing company code to its display name.
// Unknown codes are returned unchanged.
func FinancingCompanyLabel(code string) string {
	if label, ok := financingLabels[code]; ok {
		return label
	}

	return code
}

var (
	ErrNotFound    = errors.New("invoice not found")
	ErrDuplicateID = errors.New("invoice id already exists")
)

// ValidationError rejects an invoice before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// LineItem is one row of the sale. Amount is derived and recomputed on save.
type LineItem struct {
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`
}

// UnmarshalJSON tolerates the loose numbers a form produces: numeric strings
// are parsed, anything else that is not a non-negative number becomes 0.
// "unitPrice" is accepted in place of "price".
func (li *LineItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		Description string          `json:"description"`
		SKU         string          `json:"sku"`
		Quantity    json.RawMessage `json:"quantity"`
		Price       json.RawMessage `json:"price"`
		UnitPrice   json.RawMessage `json:"unitPrice"`
		Amount      json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	price := raw.Price
	if len(price) == 0 {
		price = raw.UnitPrice
	}

	*li = LineItem{
		Description: raw.Description,
		SKU:         raw.SKU,
		Quantity:    parseNumber(raw.Quantity),
		Price:       parseNumber(price),
		Amount:      parseNumber(raw.Amount),
	}

	return nil
}

func parseNumber(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}

	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0
	}

	return d.InexactFloat64()
}

// Invoice is the persisted record. Subtotal, Tax and Total are derived from
// Items and TaxLocation on every save.
type Invoice struct {
	ID               string        `json:"id"`
	InvoiceNumber    string        `json:"invoiceNumber"`
	Date             string        `json:"date"`
	Customer         Customer      `json:"customer"`
	Items            []LineItem    `json:"items"`
	TaxLocation      TaxLocation   `json:"taxLocation"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	FinancingCompany string        `json:"financingCompany"`
	Notes            string        `json:"notes"`
	Subtotal         float64       `json:"subtotal"`
	Tax              float64       `json:"tax"`
	Total            float64       `json:"total"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
