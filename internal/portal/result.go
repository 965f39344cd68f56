package portal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GenericErrorMessage is shown when the server could not be reached.
const GenericErrorMessage = "Something went wrong, please try again later"

type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultNoBody
	ResultError
)

type ErrorClass int

const (
	ErrorNone ErrorClass = iota
	ErrorTransport
	ErrorStatus
)

// Result is the outcome of one HTTP call, decided at the boundary. Body is only set
// for ResultOK; Class and Message only for ResultError.
type Result struct {
	Kind    ResultKind
	Status  int
	Body    json.RawMessage
	Class   ErrorClass
	Message string
	Codes   []string

	cause error
}

// Err returns a *RequestError for ResultError, nil otherwise.
func (r Result) Err() error {
	if r.Kind != ResultError {
		return nil
	}
	return &RequestError{Class: r.Class, Status: r.Status, Message: r.Message, Codes: r.Codes, cause: r.cause}
}

// Decode unmarshals the body. A result without a body is ErrEmptyResponse.
func (r Result) Decode(v any) error {
	switch r.Kind {
	case ResultOK:
		if err := json.Unmarshal(r.Body, v); err != nil {
			return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		return nil
	case ResultNoBody:
		return ErrEmptyResponse
	default:
		return r.Err()
	}
}

var (
	// ErrLoginRequired means the flow needs a signed-in user; callers send the user to login.
	ErrLoginRequired = errors.New("login required")
	// ErrIncompleteEnrollment is a successful setup response missing the secret or its URI.
	ErrIncompleteEnrollment = errors.New("incomplete enrollment response")
	ErrNoPendingChallenge   = errors.New("no pending login challenge")
	ErrCodeNotReady         = errors.New("verification code must have 6 digits")
	ErrNotEnrolled          = errors.New("enrollment is not complete")
	// ErrSuperseded is returned when a newer operation replaced the one that just finished.
	// Its response was discarded.
	ErrSuperseded         = errors.New("operation superseded")
	ErrEmptyResponse      = errors.New("empty response")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// RequestError is a failed HTTP call.
type RequestError struct {
	Class   ErrorClass
	Status  int
	Message string
	Codes   []string

	cause error
}

func (e *RequestError) Error() string {
	if e.Class == ErrorTransport {
		return fmt.Sprintf("request failed: %v", e.cause)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.cause
}

// IsClientError reports a 4xx response.
func (e *RequestError) IsClientError() bool {
	return e.Class == ErrorStatus && e.Status >= 400 && e.Status < 500
}
