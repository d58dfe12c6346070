package testutil

import (
	"net/http"

	"propreg/pkg/platform/middleware/admin"
	"propreg/pkg/requestcontext"
)

// AsAdmin presents token on req the way a registrar client would.
func AsAdmin(req *http.Request, token string) *http.Request {
	req.Header.Set(admin.TokenHeader, token)
	return req
}

// WithRequestID puts a request id into the request context, as the
// RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
