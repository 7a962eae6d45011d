package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasofurniture/invoicer/internal/http/health"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type counter struct {
	n   int
	err error
}

func (c counter) Count(context.Context) (int, error) { return c.n, c.err }

func TestHandler_Health(t *testing.T) {
	type testCase struct {
		name         string
		db           pinger
		backups      counter
		wantStatus   int
		wantState    string
		wantDatabase string
		wantCount    int
	}

	tests := []testCase{
		{
			name:         "Healthy",
			backups:      counter{n: 3},
			wantStatus:   http.StatusOK,
			wantState:    "ok",
			wantDatabase: "connected",
			wantCount:    3,
		},
		{
			name:         "DatabaseDown",
			db:           pinger{err: errors.New("closed")},
			backups:      counter{n: 7},
			wantStatus:   http.StatusServiceUnavailable,
			wantState:    "degraded",
			wantDatabase: "unavailable",
			wantCount:    7,
		},
		{
			name:         "BackupDirUnreadable",
			backups:      counter{err: errors.New("permission denied")},
			wantStatus:   http.StatusOK,
			wantState:    "ok",
			wantDatabase: "connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			health.NewHandler(tt.db, tt.backups).Routes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var got struct {
				Status      string `json:"status"`
				Database    string `json:"database"`
				Timestamp   string `json:"timestamp"`
				BackupCount int    `json:"backupCount"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			assert.Equal(t, tt.wantState, got.Status)
			assert.Equal(t, tt.wantDatabase, got.Database)
			assert.Equal(t, tt.wantCount, got.BackupCount)
			assert.NotEmpty(t, got.Timestamp)
		})
	}
}
