package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"fleetbudget/internal/core"
	"fleetbudget/internal/lock"
	"fleetbudget/internal/log"

	"github.com/go-playground/validator/v10"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Index   *int              `json:"index,omitempty"`
	Field   string            `json:"field,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto status codes. Anything unknown is a 500
// and gets logged with the request logger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *core.ValidationError
		fields validator.ValidationErrors
	)
	switch {
	case errors.As(err, &verr):
		body := errorBody{Code: verr.Code, Message: verr.Error(), Field: verr.Field}
		if verr.Index >= 0 {
			idx := verr.Index
			body.Index = &idx
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "invalid_request", Message: "request validation failed", Fields: processValidationErrors(fields)})
	case errors.Is(err, core.ErrVehicleNotFound), errors.Is(err, core.ErrOrderNotFound), errors.Is(err, core.ErrAlertNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Code: "not_found", Message: err.Error()})
	case errors.Is(err, core.ErrAlreadyAcknowledged), errors.Is(err, core.ErrVehicleExists):
		writeJSON(w, http.StatusConflict, errorBody{Code: "conflict", Message: err.Error()})
	case errors.Is(err, lock.ErrNotObtained):
		writeJSON(w, http.StatusConflict, errorBody{Code: "check_in_progress", Message: "a budget check for this period is already running"})
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeLimit),
		errors.Is(err, core.ErrLimitPrecision),
		errors.Is(err, core.ErrCurrencyMismatch),
		errors.Is(err, core.ErrEmptyVehicleID),
		errors.Is(err, core.ErrEmptyRegistration),
		errors.Is(err, core.ErrMissingOrderDate):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: err.Error()})
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"})
	}
}

func processValidationErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		ns := fe.Namespace()
		// drop the request struct name
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		out[ns] = fe.Tag()
	}
	return out
}

// decodeJSON reads a bounded JSON body and validates it against its struct tags.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.validate.Struct(dst)
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
