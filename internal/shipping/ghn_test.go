package shipping_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minhngo-dev/storefront-checkout/internal/config"
	"github.com/minhngo-dev/storefront-checkout/internal/entities"
	"github.com/minhngo-dev/storefront-checkout/internal/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *shipping.Client {
	return shipping.NewClient(config.Shipping{
		BaseURL:        baseURL,
		Token:          "test-token",
		ShopID:         12345,
		FromDistrictID: 1442,
		ServiceTypeID:  2,
		Timeout:        time.Second,
	})
}

func TestClient_CalculateFee(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shiip/public-api/v2/shipping-order/fee", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("Token"))
		assert.Equal(t, "12345", r.Header.Get("ShopId"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"code":    200,
			"message": "Success",
			"data":    map[string]any{"total": 36300},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	dest := entities.Address{ProvinceID: 202, DistrictID: 1820, WardCode: "030712"}
	profile := entities.PackageProfile{Weight: 750, Length: 20, Width: 25, Height: 8, InsuredValue: 250000}

	fee, err := client.CalculateFee(context.Background(), dest, profile)
	require.NoError(t, err)
	assert.Equal(t, int64(36300), fee)

	assert.Equal(t, float64(1442), gotBody["from_district_id"])
	assert.Equal(t, float64(1820), gotBody["to_district_id"])
	assert.Equal(t, "030712", gotBody["to_ward_code"])
	assert.Equal(t, float64(750), gotBody["weight"])
	assert.Equal(t, float64(250000), gotBody["insurance_value"])
}

func TestClient_CalculateFee_CarrierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code":    400,
			"message": "route not found",
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CalculateFee(
		context.Background(),
		entities.Address{DistrictID: 9999, WardCode: "1"},
		entities.PackageProfile{Weight: 1, Length: 1, Width: 1, Height: 1},
	)
	assert.ErrorContains(t, err, "route not found")
}

func TestClient_CalculateFee_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CalculateFee(
		context.Background(),
		entities.Address{DistrictID: 1820, WardCode: "030712"},
		entities.PackageProfile{Weight: 1, Length: 1, Width: 1, Height: 1},
	)
	assert.Error(t, err)
}

func TestClient_CalculateFee_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL).CalculateFee(
		context.Background(),
		entities.Address{DistrictID: 1820, WardCode: "030712"},
		entities.PackageProfile{Weight: 1, Length: 1, Width: 1, Height: 1},
	)
	assert.Error(t, err)
}
