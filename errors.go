package redwing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors returned by the client. These can be used with errors.Is()
// to check for specific error conditions.
//
// Example:
//
//	val, err := client.Get(ctx, "key").Result()
//	if errors.Is(err, redwing.ErrNil) {
//	    // Key does not exist
//	} else if errors.Is(err, redwing.ErrClosed) {
//	    // Client was closed, no more commands possible
//	} else if errors.Is(err, redwing.ErrWriteQueueFull) {
//	    // Back off and retry later
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNil is returned when the server replies with a null bulk string,
	// typically because a key does not exist
	ErrNil = errors.New("redwing: nil reply")

	// ErrClosed is returned for any command issued after Close
	ErrClosed = errors.New("redwing: client is closed")

	// ErrNotConnected is returned for commands issued before Connect
	// succeeds or after the connection was lost
	ErrNotConnected = errors.New("redwing: not connected")

	// ErrAlreadyConnected is returned by Connect on a live connection
	ErrAlreadyConnected = errors.New("redwing: already connected")

	// ErrConnectInProgress is returned by Connect while another Connect
	// is still dialing
	ErrConnectInProgress = errors.New("redwing: connect already in progress")

	// ErrWriteQueueFull is returned when the outgoing command queue is at
	// capacity and cannot accept another request
	ErrWriteQueueFull = errors.New("redwing: write queue full")

	// ErrSubscribedMode is returned when a non-subscription command is
	// issued while the connection is in subscribed mode
	ErrSubscribedMode = errors.New("redwing: connection is in subscribed mode")

	// ErrProtocol is returned when the server sends bytes that do not
	// form a valid reply; the connection cannot be re-synced afterwards
	ErrProtocol = errors.New("redwing: protocol violation")
)

// ErrorType categorizes an error for handling decisions. Fatal types tear
// down the connection and fail every pending command; local types fail
// only the command that caused them.
//
// Example:
//
//	var rwErr *redwing.Error
//	if errors.As(err, &rwErr) {
//	    switch rwErr.Type {
//	    case redwing.ErrorTypeConnection:
//	        // Socket-level failure, reconnect with Connect
//	    case redwing.ErrorTypeServer:
//	        // Server rejected this one command, connection is fine
//	    case redwing.ErrorTypeBackpressure:
//	        // Queue full, back off and retry later
//	    }
//	}
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown or unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConnection represents socket-level errors (dial, read, write)
	ErrorTypeConnection
	// ErrorTypeClosed represents use of a closed client
	ErrorTypeClosed
	// ErrorTypeProtocol represents unparseable bytes from the server
	ErrorTypeProtocol
	// ErrorTypeServer represents an error reply to a single command
	ErrorTypeServer
	// ErrorTypeEncoding represents a request argument that cannot be
	// encoded on the wire
	ErrorTypeEncoding
	// ErrorTypeReply represents a well-formed reply of an unexpected shape
	ErrorTypeReply
	// ErrorTypeValidation represents invalid input or configuration
	ErrorTypeValidation
	// ErrorTypeBackpressure represents a full write queue
	ErrorTypeBackpressure
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConnection:
		return "connection"
	case ErrorTypeClosed:
		return "closed"
	case ErrorTypeProtocol:
		return "protocol"
	case ErrorTypeServer:
		return "server"
	case ErrorTypeEncoding:
		return "encoding"
	case ErrorTypeReply:
		return "reply"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeBackpressure:
		return "backpressure"
	default:
		return "unknown"
	}
}

// Error represents an enhanced error with additional context and metadata.
// It reports what went wrong, whether the failure killed the connection,
// and context about the command that failed.
//
// The Error type implements the error interface and supports error wrapping
// via errors.Is() and errors.As().
//
// Example:
//
//	var rwErr *redwing.Error
//	if errors.As(err, &rwErr) {
//	    fmt.Printf("Error Type: %s\n", rwErr.Type)
//	    fmt.Printf("Fatal: %v\n", rwErr.IsFatal())
//	    if rwErr.Context != nil {
//	        fmt.Printf("Failed Command: %s\n", rwErr.Context.Command)
//	    }
//	}
type Error struct {
	// Type categorizes the error for handling decisions
	Type ErrorType `json:"type"`
	// Code is an optional error code from the server (ERR, WRONGTYPE, ...)
	Code string `json:"code,omitempty"`
	// Message is a human-readable error description
	Message string `json:"message"`
	// Details contains additional error metadata
	Details map[string]interface{} `json:"details,omitempty"`
	// Timestamp is when the error occurred
	Timestamp time.Time `json:"timestamp"`
	// Fatal indicates the connection was torn down by this error
	Fatal bool `json:"fatal"`
	// Context provides additional context about the failed command
	Context *ErrorContext `json:"context,omitempty"`
	// wrapped is the underlying error, if any
	wrapped error
}

// ErrorContext provides additional context about the command that failed.
// This helps with debugging and understanding the circumstances of the error.
//
// Example:
//
//	if rwErr.Context != nil {
//	    log.Printf("%s to %s failed after %v",
//	        rwErr.Context.Command,
//	        rwErr.Context.Addr,
//	        rwErr.Context.Duration)
//	}
type ErrorContext struct {
	// Command is the command name (GET, LPUSH, SUBSCRIBE, ...)
	Command string `json:"command,omitempty"`
	// Addr is the server address the client was talking to
	Addr string `json:"addr,omitempty"`
	// Duration is how long the command was outstanding before failing
	Duration time.Duration `json:"duration,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Context != nil && e.Context.Command != "" {
		return fmt.Sprintf("%s error: %s (command: %s)", e.Type, e.Message, e.Context.Command)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrorTypeClosed:
		return errors.Is(target, ErrClosed)
	case ErrorTypeProtocol:
		return errors.Is(target, ErrProtocol)
	case ErrorTypeBackpressure:
		return errors.Is(target, ErrWriteQueueFull)
	}
	return false
}

// IsFatal returns true if the error tore down the connection
func (e *Error) IsFatal() bool {
	return e.Fatal
}

// WithContext adds error context
func (e *Error) WithContext(ctx *ErrorContext) *Error {
	e.Context = ctx
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError creates a new enhanced error
func NewError(errType ErrorType, message string, wrapped error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Fatal:     isFatalType(errType),
		wrapped:   wrapped,
	}
}

// NewErrorWithCode creates a new enhanced error with a code
func NewErrorWithCode(errType ErrorType, code, message string, wrapped error) *Error {
	err := NewError(errType, message, wrapped)
	err.Code = code
	return err
}

// isFatalType determines if an error type kills the connection
func isFatalType(errType ErrorType) bool {
	switch errType {
	case ErrorTypeConnection, ErrorTypeClosed, ErrorTypeProtocol:
		return true
	default:
		return false
	}
}

// ServerError represents an error reply from the server. The first word
// of the reply is the error code (ERR, WRONGTYPE, NOSCRIPT, ...) and the
// remainder is the message. A server error fails only the command that
// provoked it; the connection stays healthy.
//
// Example:
//
//	var srvErr *redwing.ServerError
//	if errors.As(err, &srvErr) {
//	    if srvErr.Code == "WRONGTYPE" {
//	        // Key holds a different data type
//	    }
//	}
type ServerError struct {
	// Code is the leading error code word from the reply
	Code string `json:"code"`
	// Message is the rest of the error reply
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + " " + e.Message
}

// IsWrongType returns true if the command was used against a key holding
// a different data type
func (e *ServerError) IsWrongType() bool {
	return e.Code == "WRONGTYPE"
}

// ToError converts ServerError to the enhanced Error type
func (e *ServerError) ToError() *Error {
	return NewErrorWithCode(ErrorTypeServer, e.Code, e.Message, e)
}

// parseServerError splits an error reply line into its code word and
// message. Replies without an upper-case code word get code "ERR".
func parseServerError(line string) *ServerError {
	code, msg, ok := strings.Cut(line, " ")
	if !ok || code != strings.ToUpper(code) || code == "" {
		return &ServerError{Code: "ERR", Message: line}
	}
	return &ServerError{Code: code, Message: msg}
}

// ConnError represents a socket-level error such as connection refused,
// a failed write, or an unexpected EOF while reading. Connection errors
// are fatal: every pending command fails and the client must Connect
// again before issuing more.
//
// Example:
//
//	var connErr *redwing.ConnError
//	if errors.As(err, &connErr) {
//	    log.Printf("connection error during %s to %s: %v",
//	        connErr.Op, connErr.Addr, connErr.Err)
//	}
type ConnError struct {
	// Op is the operation that failed (e.g., "dial", "read", "write")
	Op string
	// Addr is the server address
	Addr string
	// Err is the underlying network error
	Err error
}

// Error implements the error interface
func (e *ConnError) Error() string {
	return fmt.Sprintf("connection error during %s to %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error
func (e *ConnError) Unwrap() error {
	return e.Err
}

// ToError converts ConnError to the enhanced Error type
func (e *ConnError) ToError() *Error {
	err := NewError(ErrorTypeConnection, e.Error(), e)
	err.WithDetail("operation", e.Op)
	err.WithDetail("addr", e.Addr)
	return err
}

// IsNil checks if the error represents a missing key or field. Blocking
// pops report expiry as a nil result instead of an error, but plain reads
// against absent keys surface ErrNil.
//
// Example:
//
//	val, err := client.Get(ctx, "key").Result()
//	if redwing.IsNil(err) {
//	    val = "default"
//	} else if err != nil {
//	    return err
//	}
func IsNil(err error) bool {
	return errors.Is(err, ErrNil)
}

// IsFatal checks if an error tore down the connection.
// Fatal errors include:
//   - Connection errors (dial, read, write failures)
//   - Protocol errors (unparseable reply bytes)
//   - Use of a closed client
//
// Non-fatal errors include:
//   - Server error replies (the connection stays usable)
//   - Encoding errors (the command was never sent)
//   - Reply shape mismatches
//   - Backpressure (queue full)
//
// After a fatal error the client may Connect again; subscriptions are not
// re-established automatically.
//
// Example:
//
//	if err := client.Set(ctx, "key", "value").Err(); err != nil {
//	    if redwing.IsFatal(err) {
//	        // Connection is gone, reconnect before retrying
//	        if cerr := client.Connect(ctx); cerr != nil {
//	            return cerr
//	        }
//	    }
//	}
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrClosed) || errors.Is(err, ErrProtocol) {
		return true
	}

	var rwErr *Error
	if errors.As(err, &rwErr) {
		return rwErr.IsFatal()
	}

	var connErr *ConnError
	if errors.As(err, &connErr) {
		return true
	}

	return false
}

// IsServerError checks if the error is an error reply from the server,
// as opposed to a client-side or transport failure.
func IsServerError(err error) bool {
	var srvErr *ServerError
	return errors.As(err, &srvErr)
}

// WrapError wraps an error with additional context and type information.
// If the error is already an enhanced Error, it updates the message.
// Otherwise, it creates a new Error with the specified type and message.
//
// Example:
//
//	err := someOperation()
//	if err != nil {
//	    return redwing.WrapError(err, redwing.ErrorTypeConnection,
//	        "failed to reach cache server")
//	}
func WrapError(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If it's already an enhanced error, just update it
	var rwErr *Error
	if errors.As(err, &rwErr) {
		rwErr.Message = message
		return rwErr
	}

	// Create new enhanced error
	return NewError(errType, message, err)
}
