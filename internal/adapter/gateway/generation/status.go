package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

// retryableStatus reports whether an HTTP status from a provider is worth retrying.
// Rate limits, timeouts and server errors are; auth and malformed requests are not.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// statusError converts a non-2xx response into a ProviderError, keeping a bounded excerpt of the body.
func statusError(provider string, resp *http.Response, detail string) *failure.Error {
	if detail == "" {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail = strings.TrimSpace(string(b))
	}
	err := fmt.Errorf("status %d", resp.StatusCode)
	if detail != "" {
		err = fmt.Errorf("status %d: %s", resp.StatusCode, detail)
	}
	return failure.Provider(provider, retryableStatus(resp.StatusCode), err, "request rejected")
}

// transportError classifies failures that happened before a response was read.
func transportError(provider string, err error) *failure.Error {
	if errors.Is(err, context.Canceled) {
		return failure.Provider(provider, false, err, "request cancelled")
	}
	return failure.Provider(provider, true, err, "request failed")
}
