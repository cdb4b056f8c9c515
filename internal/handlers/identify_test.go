package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactlink/internal/database"
	"contactlink/internal/keymutex"
	"contactlink/internal/models"
	"contactlink/internal/repository"
	"contactlink/internal/service"
)

func createTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewReconciliationService(repository.New(db), keymutex.New(), 0)
	h := NewIdentifyHandler(svc)

	router := mux.NewRouter()
	router.HandleFunc("/identify", h.Handle).Methods(http.MethodPost)
	router.HandleFunc("/health", Health).Methods(http.MethodGet)
	return router
}

func postIdentify(t *testing.T, router *mux.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/identify", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIdentifyEndpoint(t *testing.T) {
	router := createTestRouter(t)

	rec := postIdentify(t, router, `{"email":"a@x.com","phoneNumber":"111"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.IdentifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a@x.com"}, resp.Contact.Emails)
	assert.Equal(t, []string{"111"}, resp.Contact.PhoneNumbers)
	assert.Empty(t, resp.Contact.SecondaryContactIDs)
}

func TestIdentifyAcceptsNumericPhone(t *testing.T) {
	router := createTestRouter(t)

	first := postIdentify(t, router, `{"phoneNumber":"123456"}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := postIdentify(t, router, `{"phoneNumber":123456}`)
	require.Equal(t, http.StatusOK, second.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestIdentifyRejectsEmptyRequest(t *testing.T) {
	router := createTestRouter(t)

	for _, body := range []string{
		`{}`,
		`{"email":null,"phoneNumber":null}`,
		`{"email":"","phoneNumber":""}`,
	} {
		rec := postIdentify(t, router, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)

		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "VALIDATION", envelope.Error.Code)
	}
}

func TestIdentifyRejectsMalformedJSON(t *testing.T) {
	router := createTestRouter(t)

	rec := postIdentify(t, router, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")
}

func TestHealthEndpoint(t *testing.T) {
	router := createTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
