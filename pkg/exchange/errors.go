package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TransportError means the request never produced an HTTP response
// (connection refused, DNS failure, timeout, unreadable body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError means the exchange answered with a non-2xx status.
// Detail carries the server-provided reason when one was sent.
type RejectedError struct {
	Op     string
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: rejected with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: rejected with status %d: %s", e.Op, e.Status, e.Detail)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejected reports whether err is a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// RejectionDetail returns the server-provided reason, if err carries one.
func RejectionDetail(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) && re.Detail != "" {
		return re.Detail, true
	}
	return "", false
}

// parseDetail extracts a readable reason from a FastAPI error body.
func parseDetail(body []byte) string {
	var env errorResponse
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s
	}

	// validation errors: [{"loc": [...], "msg": "...", ...}]
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(env.Detail)
}
