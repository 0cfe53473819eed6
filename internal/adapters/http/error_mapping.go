package httpadapter

import (
	"net/http"

	"github.com/velworks/strpdf/internal/core/domain"
)

// mapErrorToHTTPStatus keeps the wire contract in one place. ErrFormMismatch
// never reaches this layer; per-file extraction errors are reported inside
// the progress stream and workbook, not as HTTP failures.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrArtifactNotReady):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
