package odata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fuelcast/fuelcast/internal/forecast"
)

// Client talks to a remote OData service so the UI can run apart from the
// backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the service root, e.g.
// http://backend:8080/odata/v2. Requests carry no client-side timeout; the
// caller's context bounds them.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// ListPointsOfSale reads the POINTS_OF_SALES entity set.
func (c *Client) ListPointsOfSale(ctx context.Context) ([]forecast.PointOfSale, error) {
	var out envelopeOf[collection[forecast.PointOfSale]]
	if err := c.get(ctx, "/"+EntityPointsOfSale, nil, &out); err != nil {
		return nil, err
	}
	return out.D.Results, nil
}

// GetPointOfSale reads a single point of sale by key.
func (c *Client) GetPointOfSale(ctx context.Context, uuid string) (forecast.PointOfSale, error) {
	var out envelopeOf[forecast.PointOfSale]
	key := fmt.Sprintf("%s('%s')", EntityPointsOfSale, strings.ReplaceAll(uuid, "'", "''"))
	if err := c.get(ctx, "/"+url.PathEscape(key), nil, &out); err != nil {
		return forecast.PointOfSale{}, err
	}
	return out.D, nil
}

// History reads History_Forecast filtered by uuid.
func (c *Client) History(ctx context.Context, uuid string) ([]forecast.PriceRecord, error) {
	var out envelopeOf[collection[forecast.PriceRecord]]
	query := url.Values{"$filter": {Filter{Field: "uuid", Value: uuid}.String()}}
	if err := c.get(ctx, "/"+EntityHistory, query, &out); err != nil {
		return nil, err
	}
	return out.D.Results, nil
}

// Models reads the model artifacts filtered by group_id.
func (c *Client) Models(ctx context.Context, groupID string) ([]forecast.ModelArtifact, error) {
	var out envelopeOf[collection[forecast.ModelArtifact]]
	query := url.Values{"$filter": {Filter{Field: "group_id", Value: groupID}.String()}}
	if err := c.get(ctx, "/"+EntityModel, query, &out); err != nil {
		return nil, err
	}
	return out.D.Results, nil
}

// CallAction invokes an action with no payload and reads the truthiness of
// the field named after the action.
func (c *Client) CallAction(ctx context.Context, action string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+action, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return false, err
	}
	result := gjson.GetBytes(body, gjsonEscape(action))
	if !result.Exists() {
		result = gjson.GetBytes(body, "d."+gjsonEscape(action))
	}
	return result.Bool(), nil
}

type envelopeOf[T any] struct {
	D T `json:"d"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("odata: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, forecast.ErrNotFound
	case resp.StatusCode >= 400:
		detail := gjson.GetBytes(body, "detail").String()
		return nil, fmt.Errorf("odata: %s %s returned status %d %s", req.Method, req.URL.Path, resp.StatusCode, detail)
	}
	return body, nil
}

func gjsonEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
