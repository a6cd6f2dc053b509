package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error taxonomy. Every error returned for a non-2xx response is an *APIError
// whose Kind is one of these sentinels, so callers can use errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrAuth             = errors.New("authentication error")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrServer           = errors.New("server error")
	ErrTransientNetwork = errors.New("transient network error")
)

const defaultErrorMessage = "Request failed"

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Kind     error  // Taxonomy sentinel
	Status   int    // HTTP status code
	Detail   string // Server supplied "detail" message, surfaced verbatim
	Method   string
	Endpoint string
}

func (e *APIError) Error() string {
	return e.Detail
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// KindForStatus maps an HTTP status code to the error taxonomy.
func KindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrServer
	}
}

// CheckResponse returns nil for 2xx responses. Otherwise it consumes and
// closes the body and returns an *APIError carrying the server's detail
// message, or fallback when the body has none.
func CheckResponse(resp *http.Response, fallback string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	if fallback == "" {
		fallback = defaultErrorMessage
	}
	detail := fallback
	if raw, err := io.ReadAll(resp.Body); err == nil {
		if d := parseDetail(raw); d != "" {
			detail = d
		}
	}

	apiErr := &APIError{
		Kind:   KindForStatus(resp.StatusCode),
		Status: resp.StatusCode,
		Detail: detail,
	}
	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.Endpoint = resp.Request.URL.Path
	}
	return apiErr
}

// parseDetail reads the "detail" field of an error body. The field is either a
// string or a list of validation items each carrying a "msg".
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func networkError(method, endpoint string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrTransientNetwork, method, endpoint, err)
}
