package infrastructure

import (
	"net/http"
	"time"
)

// NewHTTPClient builds the client used for transfers. The timeout bounds
// only the wait for response headers; bodies stream for as long as the
// transfer takes.
func NewHTTPClient(responseTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		ResponseHeaderTimeout: responseTimeout,
		IdleConnTimeout:       60 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
	}
	return &http.Client{Transport: transport}
}
