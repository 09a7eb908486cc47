package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/minhngo-dev/storefront-checkout/internal/config"
	"github.com/minhngo-dev/storefront-checkout/internal/entities"
)

const feePath = "/shiip/public-api/v2/shipping-order/fee"

// Client talks to the carrier's fee API. It is deliberately dumb: no retry,
// no caching. Callers treat it as best-effort.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	shopID     int

	fromDistrictID int
	serviceTypeID  int
}

func NewClient(cfg config.Shipping) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		shopID:         cfg.ShopID,
		fromDistrictID: cfg.FromDistrictID,
		serviceTypeID:  cfg.ServiceTypeID,
	}
}

type feeRequest struct {
	FromDistrictID int    `json:"from_district_id"`
	ServiceTypeID  int    `json:"service_type_id"`
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	Weight         int    `json:"weight"`
	Length         int    `json:"length"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	InsuranceValue int64  `json:"insurance_value"`
}

type feeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Total int64 `json:"total"`
	} `json:"data"`
}

// CalculateFee quotes delivery of one package profile to a fully resolved
// destination. The profile is expected to already satisfy the carrier's
// minimum-of-1 dimensional constraints.
func (c *Client) CalculateFee(ctx context.Context, dest entities.Address, profile entities.PackageProfile) (int64, error) {
	payload := feeRequest{
		FromDistrictID: c.fromDistrictID,
		ServiceTypeID:  c.serviceTypeID,
		ToDistrictID:   dest.DistrictID,
		ToWardCode:     dest.WardCode,
		Weight:         profile.Weight,
		Length:         profile.Length,
		Width:          profile.Width,
		Height:         profile.Height,
		InsuranceValue: profile.InsuredValue,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode fee request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+feePath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build fee request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
	req.Header.Set("ShopId", strconv.Itoa(c.shopID))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fee request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fee request returned status %d", res.StatusCode)
	}

	var parsed feeResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode fee response: %w", err)
	}

	if parsed.Code != http.StatusOK {
		return 0, fmt.Errorf("carrier rejected fee request: %s", parsed.Message)
	}
	if parsed.Data.Total < 0 {
		return 0, fmt.Errorf("carrier returned negative fee %d", parsed.Data.Total)
	}

	return parsed.Data.Total, nil
}
