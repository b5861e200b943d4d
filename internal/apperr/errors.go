// Package apperr holds the sentinel errors shared by the auth core, the admin
// endpoints and the catalog proxy, and maps them to HTTP responses.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/textcrypto"
)

// sentinel errors; match with errors.Is
var (
	ErrCredentialsInvalid = errors.New("could not validate credentials")
	ErrPermissionDenied   = errors.New("user without permission for this request")
	ErrCodeInvalid        = errors.New("code is not valid")
	ErrCodeExpired        = errors.New("code has expired")
	ErrStorageUnavailable = errors.New("database is not responding")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrGatewayTimeout     = errors.New("the request to the service timed out")
	ErrBadGateway         = errors.New("failed to reach external service")
)

// UpstreamError is an error status returned by the catalog service. Detail is
// the decoded upstream body, passed back to the caller as-is.
type UpstreamError struct {
	Status int
	Detail any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.Status)
}

// HTTPStatus maps err to the status code surfaced to clients.
func HTTPStatus(err error) int {
	var up *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &up):
		return up.Status
	case errors.Is(err, ErrCredentialsInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrCodeExpired):
		return http.StatusForbidden
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrBadGateway):
		return http.StatusBadGateway
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, textcrypto.ErrDecryption):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"detail": ...} with the mapped status. Internal,
// storage and gateway errors are reduced to their sentinel text; callers log
// the full error.
func WriteError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	var detail any
	var up *UpstreamError
	switch {
	case errors.As(err, &up):
		detail = up.Detail
	case errors.Is(err, ErrCredentialsInvalid):
		// never reveal why validation failed
		detail = ErrCredentialsInvalid.Error()
		w.Header().Set("WWW-Authenticate", "Bearer")
	case errors.Is(err, ErrStorageUnavailable):
		// wrapped driver errors carry hosts and roles
		detail = ErrStorageUnavailable.Error()
	case errors.Is(err, ErrGatewayTimeout):
		detail = ErrGatewayTimeout.Error()
	case errors.Is(err, ErrBadGateway):
		detail = ErrBadGateway.Error()
	case status == http.StatusInternalServerError:
		detail = "internal server error"
	default:
		detail = err.Error()
	}
	WriteJSON(w, status, map[string]any{"detail": detail})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
