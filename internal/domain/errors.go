package domain

import "errors"

// ErrorCode identifies a trade failure. Codes are stable values the UI and
// tests assert on; they are returned, never thrown across the coordinator
// boundary.
type ErrorCode string

const (
	ErrInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrPriceUnavailable     ErrorCode = "PRICE_UNAVAILABLE"
	ErrInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
	ErrInsufficientHoldings ErrorCode = "INSUFFICIENT_HOLDINGS"
	ErrSubmissionFailed     ErrorCode = "SUBMISSION_FAILED"
	ErrBusy                 ErrorCode = "BUSY"
)

// TradeError is a recoverable trade failure surfaced to the caller.
// For ErrSubmissionFailed the Message is the server's text, verbatim.
type TradeError struct {
	Code    ErrorCode
	Message string
}

func (e *TradeError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// NewTradeError builds a TradeError with the given code and message.
func NewTradeError(code ErrorCode, msg string) *TradeError {
	return &TradeError{Code: code, Message: msg}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a TradeError.
func CodeOf(err error) ErrorCode {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}
