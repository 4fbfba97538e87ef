package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListPricesForStorefront(t *testing.T) {
	h := NewHandler(Default())
	req := httptest.NewRequest(http.MethodGet, "/?storefront=mobile_money", nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    []ProductResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Len(t, body.Data, 5)

	for _, p := range body.Data {
		require.NotNil(t, p.Price, p.ID)
		require.Equal(t, "XOF", p.Price.Currency)
	}
}

func TestListRejectsUnknownStorefront(t *testing.T) {
	h := NewHandler(Default())
	req := httptest.NewRequest(http.MethodGet, "/?storefront=play_store", nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
