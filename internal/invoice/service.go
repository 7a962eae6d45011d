package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, id string) error
}

// ListFilter narrows List by invoice date (inclusive, YYYY-MM-DD). Empty
// bounds are open.
type ListFilter struct {
	StartDate string
	EndDate   string
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the time source used for timestamps and defaults.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and normalizes inv, derives its totals and persists it.
// A caller supplied id that already exists fails with ErrDuplicateID.
func (s *Service) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	now := s.now().UTC()

	if err := s.normalize(inv, now); err != nil {
		return nil, err
	}

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}

	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = defaultInvoiceNumber(now)
	}

	inv.UpdatedAt = now

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// List returns invoices most recently created first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	for _, d := range []string{filter.StartDate, filter.EndDate} {
		if d == "" {
			continue
		}

		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return nil, &ValidationError{Field: "date range", Message: "dates must be YYYY-MM-DD"}
		}
	}

	return s.repo.ListInvoices(ctx, filter)
}

// Update replaces the stored invoice with id. CreatedAt is kept from the
// stored record and UpdatedAt is refreshed.
func (s *Service) Update(ctx context.Context, id string, inv *Invoice) (*Invoice, error) {
	now := s.now().UTC()

	if err := s.normalize(inv, now); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	inv.ID = existing.ID
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = now

	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = existing.InvoiceNumber
	}

	if err := s.repo.UpdateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteInvoice(ctx, id)
}

// Totals previews the totals of a draft without storing anything.
func (s *Service) Totals(items []LineItem, loc TaxLocation) Totals {
	if loc == "" {
		loc = TaxLocationTexas
	}

	return CalculateTotals(items, loc)
}

func (s *Service) normalize(inv *Invoice, now time.Time) error {
	inv.ID = strings.TrimSpace(inv.ID)
	inv.InvoiceNumber = strings.TrimSpace(inv.InvoiceNumber)
	inv.Customer.Name = strings.TrimSpace(inv.Customer.Name)

	if inv.Customer.Name == "" {
		return &ValidationError{Field: "customer.name", Message: "customer name is required"}
	}

	inv.Date = strings.TrimSpace(inv.Date)
	if inv.Date == "" {
		inv.Date = now.Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, inv.Date); err != nil {
		return &ValidationError{Field: "date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", inv.Date)}
	}

	if !inv.PaymentMethod.Valid() {
		return &ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("unknown payment method %q", inv.PaymentMethod)}
	}

	if inv.PaymentMethod != PaymentFinancing {
		inv.FinancingCompany = ""
	}

	if inv.TaxLocation == "" {
		inv.TaxLocation = TaxLocationTexas
	}

	inv.Items = FilterItems(inv.Items)
	if len(inv.Items) == 0 {
		return &ValidationError{Field: "items", Message: "at least one item with a description and quantity is required"}
	}

	totals := CalculateTotals(inv.Items, inv.TaxLocation)
	inv.Subtotal = totals.Subtotal.InexactFloat64()
	inv.Tax = totals.Tax.InexactFloat64()
	inv.Total = totals.Total.InexactFloat64()

	return nil
}

func defaultInvoiceNumber(now time.Time) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}

	return "INV-" + millis
}
