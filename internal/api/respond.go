package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/FlaxHawk/Anxiety-Ally/internal/ai"
	"github.com/FlaxHawk/Anxiety-Ally/internal/core"
	"github.com/FlaxHawk/Anxiety-Ally/internal/logging"
	"github.com/FlaxHawk/Anxiety-Ally/internal/mood"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
	"github.com/FlaxHawk/Anxiety-Ally/internal/validation"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	detailInternal        = "Internal server error"
	detailInvalidBody     = "Invalid request body"
	detailBadCredentials  = "Incorrect username or password"
	detailInvalidToken    = "Could not validate credentials"
	detailInvalidPeriod   = "Period must be one of: day, week, month"
	detailSentimentFailed = "Sentiment analysis failed"
)

type errorResponse struct {
	Detail string                   `json:"detail"`
	Errors []validation.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detail)
}

// decodeAndValidate reads a JSON body into v and checks its validate tags.
// It writes the 400 response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, detailInvalidBody)
		return false
	}
	return validate(w, v)
}

func validate(w http.ResponseWriter, v interface{}) bool {
	err := validation.ValidateStruct(v)
	if err == nil {
		return true
	}
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: verr.Error(), Errors: verr.Fields})
		return false
	}
	writeError(w, http.StatusBadRequest, err.Error())
	return false
}

// serviceError maps service errors onto status codes. notFound is the detail
// used for core.ErrNotFound.
func serviceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, mood.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, detailInvalidPeriod)
	case errors.Is(err, ai.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, detailSentimentFailed)
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "Email already registered")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, detailInternal)
	}
}

// listOptions reads skip, limit, start_date and end_date from the query
// string. Dates are RFC 3339 timestamps or plain dates (midnight UTC).
func listOptions(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	opts := store.ListOptions{Limit: defaultListLimit}

	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("skip must be a non-negative integer")
		}
		opts.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			return opts, errors.New("limit must be an integer between 1 and 100")
		}
		opts.Limit = n
	}

	var err error
	if opts.Start, err = dateParam(r, "start_date"); err != nil {
		return opts, err
	}
	if opts.End, err = dateParam(r, "end_date"); err != nil {
		return opts, err
	}
	return opts, nil
}

func dateParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New(name + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}
