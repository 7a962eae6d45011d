package invoice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/elpasofurniture/invoicer/internal/invoice"
)

var fixedNow = time.Date(2024, 3, 9, 16, 4, 5, 123_000_000, time.UTC)

func newService(repo invoice.Repository) *invoice.Service {
	return invoice.NewService(repo).WithClock(func() time.Time { return fixedNow })
}

func draft() *invoice.Invoice {
	return &invoice.Invoice{
		Customer: invoice.Customer{Name: "  Maria Lopez "},
		Items: []invoice.LineItem{
			{Description: "Sofa", Quantity: 2, Price: 500},
			{Description: "", Quantity: 1, Price: 100},
		},
		TaxLocation: invoice.TaxLocationTexas,
		Subtotal:    1,
		Tax:         2,
		Total:       3,
	}
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		input     func() *invoice.Invoice
		setupMock func(m *invoice.MockRepository)
		wantErr   error
		wantValid bool
		check     func(t *testing.T, got *invoice.Invoice)
	}

	tests := []testCase{
		{
			name:  "Success",
			input: draft,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, got *invoice.Invoice) {
				assert.NotEmpty(t, got.ID)
				assert.Equal(t, "Maria Lopez", got.Customer.Name)
				assert.Equal(t, "INV-00245123", got.InvoiceNumber)
				assert.Equal(t, "2024-03-09", got.Date)
				assert.Len(t, got.Items, 1)
				assert.Equal(t, 1000.0, got.Items[0].Amount)
				assert.Equal(t, 1000.0, got.Subtotal)
				assert.Equal(t, 82.5, got.Tax)
				assert.Equal(t, 1082.5, got.Total)
				assert.Equal(t, fixedNow, got.CreatedAt)
				assert.Equal(t, fixedNow, got.UpdatedAt)
			},
		},
		{
			name: "KeepsSuppliedIDAndCreatedAt",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.ID = "abc-123"
				inv.InvoiceNumber = "INV-7"
				inv.CreatedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
				return inv
			},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, got *invoice.Invoice) {
				assert.Equal(t, "abc-123", got.ID)
				assert.Equal(t, "INV-7", got.InvoiceNumber)
				assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got.CreatedAt)
				assert.Equal(t, fixedNow, got.UpdatedAt)
			},
		},
		{
			name: "FinancingCompanyClearedForCash",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.PaymentMethod = invoice.PaymentCash
				inv.FinancingCompany = "acima"
				inv.TaxLocation = ""
				return inv
			},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, got *invoice.Invoice) {
				assert.Empty(t, got.FinancingCompany)
				assert.Equal(t, invoice.TaxLocationTexas, got.TaxLocation)
			},
		},
		{
			name: "MissingCustomerName",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.Customer.Name = "   "
				return inv
			},
			wantValid: true,
		},
		{
			name: "NoContributingItems",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.Items = []invoice.LineItem{{Description: "Lamp", Quantity: 0, Price: 10}}
				return inv
			},
			wantValid: true,
		},
		{
			name: "MalformedDate",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.Date = "03/09/2024"
				return inv
			},
			wantValid: true,
		},
		{
			name: "UnknownPaymentMethod",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.PaymentMethod = "barter"
				return inv
			},
			wantValid: true,
		},
		{
			name:  "DuplicateID",
			input: draft,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(invoice.ErrDuplicateID)
			},
			wantErr: invoice.ErrDuplicateID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := newService(repo).Create(context.Background(), tt.input())

			if tt.wantValid {
				var verr *invoice.ValidationError
				assert.ErrorAs(t, err, &verr)
				assert.Nil(t, got)

				return
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestService_Update(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	type testCase struct {
		name      string
		input     func() *invoice.Invoice
		setupMock func(m *invoice.MockRepository)
		wantErr   error
		wantValid bool
	}

	tests := []testCase{
		{
			name:  "Success",
			input: draft,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					GetInvoice(gomock.Any(), "inv-1").
					Return(&invoice.Invoice{ID: "inv-1", InvoiceNumber: "INV-1", CreatedAt: created}, nil)
				m.EXPECT().
					UpdateInvoice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, inv *invoice.Invoice) error {
						assert.Equal(t, "inv-1", inv.ID)
						assert.Equal(t, "INV-1", inv.InvoiceNumber)
						assert.Equal(t, created, inv.CreatedAt)
						assert.Equal(t, fixedNow, inv.UpdatedAt)
						assert.Equal(t, 1082.5, inv.Total)
						return nil
					})
			},
		},
		{
			name:  "NotFound",
			input: draft,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), "inv-1").Return(nil, invoice.ErrNotFound)
			},
			wantErr: invoice.ErrNotFound,
		},
		{
			name: "ValidationBeforeLookup",
			input: func() *invoice.Invoice {
				inv := draft()
				inv.Items = nil
				return inv
			},
			wantValid: true,
		},
		{
			name:  "RepoError",
			input: draft,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().GetInvoice(gomock.Any(), "inv-1").Return(&invoice.Invoice{ID: "inv-1"}, nil)
				m.EXPECT().UpdateInvoice(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			wantErr: errors.New("disk full"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := newService(repo).Update(context.Background(), "inv-1", tt.input())

			if tt.wantValid {
				var verr *invoice.ValidationError
				assert.ErrorAs(t, err, &verr)

				return
			}

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, invoice.ErrNotFound) {
					assert.ErrorIs(t, err, invoice.ErrNotFound)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "inv-1", got.ID)
		})
	}
}

func TestService_List(t *testing.T) {
	type testCase struct {
		name      string
		filter    invoice.ListFilter
		setupMock func(m *invoice.MockRepository)
		wantLen   int
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					ListInvoices(gomock.Any(), invoice.ListFilter{}).
					Return([]*invoice.Invoice{{ID: "a"}, {ID: "b"}}, nil)
			},
			wantLen: 2,
		},
		{
			name:   "DateRange",
			filter: invoice.ListFilter{StartDate: "2024-01-01", EndDate: "2024-01-31"},
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					ListInvoices(gomock.Any(), invoice.ListFilter{StartDate: "2024-01-01", EndDate: "2024-01-31"}).
					Return([]*invoice.Invoice{{ID: "a"}}, nil)
			},
			wantLen: 1,
		},
		{
			name:    "BadDate",
			filter:  invoice.ListFilter{StartDate: "yesterday"},
			wantErr: true,
		},
		{
			name: "RepoError",
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().ListInvoices(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := invoice.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := newService(repo).List(context.Background(), tt.filter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_GetAndDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := invoice.NewMockRepository(ctrl)
	repo.EXPECT().GetInvoice(gomock.Any(), "missing").Return(nil, invoice.ErrNotFound)
	repo.EXPECT().DeleteInvoice(gomock.Any(), "missing").Return(invoice.ErrNotFound)

	svc := newService(repo)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, invoice.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "missing"), invoice.ErrNotFound)
}

func TestService_Totals(t *testing.T) {
	svc := newService(nil)

	got := svc.Totals([]invoice.LineItem{{Description: "Recliner", Quantity: 1, Price: 250}}, invoice.TaxLocationOther)
	assert.Equal(t, "250", got.Total.String())

	got = svc.Totals([]invoice.LineItem{{Description: "Recliner", Quantity: 1, Price: 250}}, "")
	assert.Equal(t, "20.63", got.Tax.String())
}
