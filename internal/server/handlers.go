package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mdm/internal/api"
	"mdm/internal/ingest"
)

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500 && loggedByService(err):
		s.log().Debug("request error", fields...)
		message = "internal error"
	case status >= 500:
		s.log().Error("request error", fields...)
		message = "internal error"
	case status >= 400 && shouldWarnClientError(status):
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code, ErrorCode: numericCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

type apiError struct {
	status  int
	code    string
	errCode int
	err     error

	// logged marks failures the ingest service has already logged.
	logged bool
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func unprocessableCode(err error, code int) error {
	return makeAPIError(http.StatusUnprocessableEntity, "invalid_argument", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

// ingestFailure maps orchestrator error kinds onto HTTP statuses and codes.
func ingestFailure(err error) error {
	switch ingest.KindOf(err) {
	case ingest.KindValidation:
		switch {
		case errors.Is(err, ingest.ErrMissionRequired):
			return unprocessableCode(err, ErrCodeMissingRequired)
		case errors.Is(err, ingest.ErrEmptyBody), errors.Is(err, ingest.ErrMissingFile):
			return badRequestCode(err, ErrCodeEmptyPayload)
		case errors.Is(err, ingest.ErrInvalidMetadata):
			return badRequestCode(err, ErrCodeInvalidJSON)
		default:
			return badRequestCode(err, ErrCodeInvalidMetadata)
		}
	case ingest.KindAuth:
		return unauthorized(err)
	case ingest.KindConflict:
		return conflictCode(err, ErrCodeObjectIDExists)
	case ingest.KindNotFound:
		return makeAPIError(http.StatusNotFound, "not_found", ErrCodeObjectNotFound, err)
	case ingest.KindStorage:
		return makeAPIError(http.StatusInternalServerError, "storage_error", ErrCodeStorageFailure, err)
	case ingest.KindPersistence:
		return makeAPIError(http.StatusInternalServerError, "persistence_error", ErrCodeStoreFailure, err)
	default:
		return internalError(err)
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	err = ingestFailure(err)
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

// writeIngestError reports an error returned by the ingester, which owns
// logging of its own failures.
func (s *Server) writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	err = ingestFailure(err)
	var apiErr apiError
	if errors.As(err, &apiErr) {
		apiErr.logged = true
		err = apiErr
	}
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func loggedByService(err error) bool {
	var apiErr apiError
	return errors.As(err, &apiErr) && apiErr.logged
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return ""
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

func shouldWarnClientError(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func (s *Server) withLimiter(w http.ResponseWriter, r *http.Request, limiter chan struct{}, name string, fn func()) {
	if !s.acquireLimiter(limiter, w, r, name) {
		return
	}
	defer s.releaseLimiter(limiter)
	fn()
}
