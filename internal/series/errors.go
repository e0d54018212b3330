package series

import (
	"encoding/json"
	"fmt"
)

// Kind classifies the errors a data request can fail with.
type Kind string

const (
	KindUnconfiguredStorage Kind = "UNCONFIGURED_STORAGE"
	KindUnknownDataType     Kind = "UNKNOWN_DATA_TYPE"
	KindNetwork             Kind = "NETWORK_ERROR"
	KindParse               Kind = "PARSE_ERROR"
	KindUnknown             Kind = "UNKNOWN_ERROR"
)

var (
	// ErrUnconfiguredStorage is returned when data is requested before routes are set.
	ErrUnconfiguredStorage = &Error{Kind: KindUnconfiguredStorage}
	// ErrUnknownDataType is returned for aliases missing from the route table.
	ErrUnknownDataType = &Error{Kind: KindUnknownDataType}
	// ErrNetwork matches any NETWORK_ERROR regardless of status.
	ErrNetwork = &Error{Kind: KindNetwork}
	// ErrParse matches any PARSE_ERROR.
	ErrParse = &Error{Kind: KindParse}
	// ErrUnknown matches any UNKNOWN_ERROR.
	ErrUnknown = &Error{Kind: KindUnknown}
)

// Error is the typed failure surfaced to callers of the data pipeline.
type Error struct {
	Kind Kind
	// Status and StatusText are set for NETWORK_ERROR. Status is 0 when the
	// request never produced an HTTP response.
	Status     int
	StatusText string
	DataType   string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		if e.Status == 0 {
			return fmt.Sprintf("%s: %s", e.Kind, e.StatusText)
		}
		return fmt.Sprintf("%s: %d %s", e.Kind, e.Status, e.StatusText)
	case KindUnknownDataType:
		if e.DataType != "" {
			return fmt.Sprintf("%s: %q", e.Kind, e.DataType)
		}
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Details returns the structured details attached to the error, if any.
func (e *Error) Details() map[string]any {
	details := map[string]any{}
	if e.Kind == KindNetwork {
		details["status"] = e.Status
		details["statusText"] = e.StatusText
	}
	if e.DataType != "" {
		details["dataType"] = e.DataType
	}
	if e.Err != nil {
		details["cause"] = e.Err.Error()
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// MarshalJSON encodes the error as {"code": ..., "details": ...}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    Kind           `json:"code"`
		Details map[string]any `json:"details,omitempty"`
	}{
		Code:    e.Kind,
		Details: e.Details(),
	})
}

// NetworkError builds a NETWORK_ERROR for an HTTP status.
func NetworkError(status int, statusText string, cause error) *Error {
	return &Error{Kind: KindNetwork, Status: status, StatusText: statusText, Err: cause}
}

// UnknownError wraps an opaque storage failure.
func UnknownError(cause error) *Error {
	return &Error{Kind: KindUnknown, Err: cause}
}
