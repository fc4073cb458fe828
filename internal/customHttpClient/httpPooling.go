package customHttpClient

import (
	"net/http"
	"time"

	"github.com/resumify/docflow/internal/config"
)

// shared transport so the OCR client and the status reader reuse connections
var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}
