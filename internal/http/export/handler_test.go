package export_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/elpasofurniture/invoicer/internal/export"
	exporthttp "github.com/elpasofurniture/invoicer/internal/http/export"
	"github.com/elpasofurniture/invoicer/internal/invoice"
	"github.com/elpasofurniture/invoicer/internal/pdf"
)

func TestHandler_Metadata(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setupMock  func(m *invoice.MockRepository)
		wantStatus int
		wantCount  int
	}

	tests := []testCase{
		{
			name: "Range",
			body: `{"start_date":"2024-04-01","end_date":"2024-04-30"}`,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().
					ListInvoices(gomock.Any(), invoice.ListFilter{StartDate: "2024-04-01", EndDate: "2024-04-30"}).
					Return([]*invoice.Invoice{{
						ID:            "a1",
						InvoiceNumber: "INV-1",
						Date:          "2024-04-02",
						Customer:      invoice.Customer{Name: "Ana Ruiz"},
						Items:         []invoice.LineItem{{Description: "Sofa", Quantity: 1, Price: 10, Amount: 10}},
						Subtotal:      10,
						Total:         10,
					}}, nil)
			},
			wantStatus: http.StatusOK,
			wantCount:  1,
		},
		{
			name:       "BadDate",
			body:       `{"start_date":"April"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "MalformedBody",
			body:       `{"start_date":`,
			wantStatus: http.StatusBadRequest,
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

			svc := export.NewService(invoice.NewService(repo), pdf.NewRenderer(pdf.Shop{Name: "Shop"}))

			r := chi.NewRouter()
			exporthttp.NewHandler(svc).Routes(r)

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}

			var got struct {
				Invoices []struct {
					InvoiceNumber string  `json:"invoiceNumber"`
					Customer      string  `json:"customer"`
					Total         float64 `json:"total"`
					File          string  `json:"file"`
				} `json:"invoices"`
				Summary string `json:"summary"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			require.Len(t, got.Invoices, tt.wantCount)
			assert.Equal(t, "Ana Ruiz", got.Invoices[0].Customer)
			assert.Equal(t, "Invoice_INV-1_Ana_Ruiz.pdf", got.Invoices[0].File)
			assert.Contains(t, got.Summary, "1 invoices, total $10.00")
		})
	}
}
