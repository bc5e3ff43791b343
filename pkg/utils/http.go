// Package utils provides common utility functions.
package utils

import "net/http"

// UserAgent identifies the generator to the remote API.
const UserAgent = "relnotes/1.0"

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct{}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{}
}

// BuildHeaders creates JSON request headers with defaults.
// A non-empty token is sent as a bearer credential.
func (h *HTTPHelper) BuildHeaders(token string, customHeaders map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", UserAgent)
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json; charset=utf-8")

	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
