package backup_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasofurniture/invoicer/internal/backup"
	backupstore "github.com/elpasofurniture/invoicer/internal/backup/store"
	"github.com/elpasofurniture/invoicer/internal/database"
	backuphttp "github.com/elpasofurniture/invoicer/internal/http/backup"
)

func setup(t *testing.T) (http.Handler, *backup.Service) {
	t.Helper()

	root := t.TempDir()

	db, err := database.New(filepath.Join(root, "invoices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := backup.NewService(backupstore.New(db), backup.Config{Dir: filepath.Join(root, "backups"), Retention: 7})

	r := chi.NewRouter()
	backuphttp.NewHandler(svc).Routes(r)

	return r, svc
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_CreateAndList(t *testing.T) {
	h, _ := setup(t)

	rec := do(h, http.MethodPost, "/backup", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created struct {
		Success bool   `json:"success"`
		Backup  string `json:"backup"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.True(t, backup.ValidName(created.Backup))

	rec = do(h, http.MethodGet, "/backups", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []backup.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.Backup, listed[0].Filename)
	assert.Positive(t, listed[0].SizeBytes)
}

func TestHandler_Restore(t *testing.T) {
	type testCase struct {
		name       string
		body       func(existing string) string
		wantStatus int
		wantReload bool
	}

	tests := []testCase{
		{
			name:       "Unconfirmed",
			body:       func(existing string) string { return `{"filename":"` + existing + `"}` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "InvalidName",
			body:       func(string) string { return `{"filename":"../invoices.db","confirm":true}` },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "NotFound",
			body:       func(string) string { return `{"filename":"backup_2001-01-01T00-00-00-000Z.db","confirm":true}` },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Success",
			body:       func(existing string) string { return `{"filename":"` + existing + `","confirm":true}` },
			wantStatus: http.StatusAccepted,
			wantReload: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := setup(t)

			rec := do(h, http.MethodPost, "/backup", "")
			require.Equal(t, http.StatusOK, rec.Code)

			var created struct {
				Backup string `json:"backup"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

			rec = do(h, http.MethodPost, "/restore", tt.body(created.Backup))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			select {
			case <-svc.Reloads():
				assert.True(t, tt.wantReload, "unexpected reload")
			default:
				assert.False(t, tt.wantReload, "expected reload")
			}
		})
	}
}
