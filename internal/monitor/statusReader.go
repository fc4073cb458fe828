package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/resumify/docflow/internal/api"
	"github.com/resumify/docflow/internal/customHttpClient"
)

// HTTPStatusReader polls the public status endpoint the way a browser would.
type HTTPStatusReader struct {
	baseURL string
	http    *http.Client
}

func NewHTTPStatusReader(baseURL string) *HTTPStatusReader {
	return &HTTPStatusReader{
		baseURL: baseURL,
		http:    customHttpClient.New(10 * time.Second),
	}
}

func (r *HTTPStatusReader) ReadStatus(ctx context.Context, id string) (api.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/documents/%s/status", r.baseURL, id), nil)
	if err != nil {
		return api.StatusResponse{}, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return api.StatusResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return api.StatusResponse{}, fmt.Errorf("status read: endpoint returned %d", resp.StatusCode)
	}

	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return api.StatusResponse{}, err
	}
	return status, nil
}
