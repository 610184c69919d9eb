package hookbase

import (
	"encoding/json"
	"fmt"
)

// Response is the outcome of one dispatch. Exactly one of Data and Error is
// set. Status 0 means the request never produced a usable HTTP response.
type Response struct {
	Status int
	Data   json.RawMessage
	Error  string
}

func failure(status int, msg string) Response {
	if msg == "" {
		msg = "Request failed"
	}
	return Response{Status: status, Error: msg}
}

func (r Response) OK() bool { return r.Error == "" }

// Err returns the failure as an *APIError, or nil on success.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &APIError{Status: r.Status, Message: r.Error}
}

// APIError is a failed dispatch.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Network reports whether the failure happened below HTTP.
func (e *APIError) Network() bool { return e.Status == 0 }

// Describe includes the status code, for logs.
func (e *APIError) Describe() string {
	if e.Network() {
		return "network error: " + e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}
