package listingctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// listingResponse mirrors the API envelope for listing endpoints.
type listingResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			Page       int `json:"page"`
			PageSize   int `json:"page_size"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
		State struct {
			IsStale    bool   `json:"is_stale"`
			IsLoading  bool   `json:"is_loading"`
			IsFetching bool   `json:"is_fetching"`
			Superseded bool   `json:"superseded"`
			Error      bool   `json:"error"`
			Mode       string `json:"mode"`
		} `json:"state"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiClient struct {
	baseURL string
	token   string
	viewID  string
	http    *http.Client
}

func newAPIClient(baseURL, token, viewID string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		viewID:  viewID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *apiClient) list(ctx context.Context, entity string, q url.Values) (int, listingResponse, error) {
	u := c.baseURL + "/api/v1/listings/" + url.PathEscape(entity)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return c.do(ctx, http.MethodGet, u)
}

func (c *apiClient) refresh(ctx context.Context, entity string) (int, listingResponse, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/listings/"+url.PathEscape(entity)+"/refresh")
}

func (c *apiClient) do(ctx context.Context, method, u string) (int, listingResponse, error) {
	var out listingResponse
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, out, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.viewID != "" {
		req.Header.Set("X-View-Id", c.viewID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, out, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return resp.StatusCode, out, fmt.Errorf("decode %s response: %w", u, err)
	}
	return resp.StatusCode, out, nil
}

// parseFilters turns repeated key=value flags into query values. Values for
// the same key accumulate.
func parseFilters(raw []string) (url.Values, error) {
	q := url.Values{}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q must be key=value", kv)
		}
		q.Add(k, strings.TrimSpace(v))
	}
	return q, nil
}
