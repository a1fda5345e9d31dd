package httpx

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 30 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ExternalHTTPClient returns the shared client used for all outbound calls
// (tracker, LLM provider, chat delivery). A single slow external service is
// bounded by the client timeout and cannot starve the scheduler.
func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}

// ConfigureExternalHTTPClient sets the shared client timeout from a
// seconds value and returns the applied duration. Non-positive values keep
// the default.
func ConfigureExternalHTTPClient(seconds int) time.Duration {
	if seconds <= 0 {
		externalHTTPClient.Timeout = defaultExternalHTTPTimeout
		return defaultExternalHTTPTimeout
	}
	timeout := time.Duration(seconds) * time.Second
	externalHTTPClient.Timeout = timeout
	return timeout
}
