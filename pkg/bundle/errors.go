// Package bundle error types.
//
// These error types correspond to the failure modes of the bundle pipeline:
// proposing transactions, finalizing the bundle hash, signing inputs,
// combining co-signed copies and parsing transaction trytes.
package bundle

import "fmt"

// ProposalError is returned when a transaction or input cannot be added to
// a proposed bundle.
//
// Common causes: the bundle is already finalized, a negative spend value,
// an input without balance or key index.
type ProposalError struct {
	Code    string // Error code (e.g., ErrInvalidInput, ErrAlreadyFinalized)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *ProposalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("proposal error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("proposal error [%s]: %s", e.Code, e.Message)
}

func (e *ProposalError) Unwrap() error { return e.Cause }

// FinalizationError is returned when a bundle hash cannot be computed.
//
// The balance must be zero (or negative with a change address) and the
// bundle must hold at least one transaction.
type FinalizationError struct {
	Code    string // Error code (e.g., ErrInsufficientFunds, ErrEmptyBundle)
	Message string // Human-readable error message
	Cause   error  // Underlying error (if any)
}

func (e *FinalizationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("finalization error [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("finalization error [%s]: %s", e.Code, e.Message)
}

func (e *FinalizationError) Unwrap() error { return e.Cause }

// SigningError is returned when an input cannot be signed.
type SigningError struct {
	Code             string // Error code (e.g., ErrNotFinalized, ErrAlreadySigned)
	TransactionIndex int    // Index of the transaction that caused the error
	Message          string // Human-readable error message
	Cause            error  // Underlying error (if any)
}

func (e *SigningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("signing error [%s] at transaction %d: %s: %v", e.Code, e.TransactionIndex, e.Message, e.Cause)
	}
	return fmt.Sprintf("signing error [%s] at transaction %d: %s", e.Code, e.TransactionIndex, e.Message)
}

func (e *SigningError) Unwrap() error { return e.Cause }

// CombineError is returned when co-signed copies of a bundle cannot be
// merged because they disagree.
type CombineError struct {
	Code    string // Error code (e.g., ErrConflictingData)
	Message string // Human-readable error message
}

func (e *CombineError) Error() string {
	return fmt.Sprintf("combine error [%s]: %s", e.Code, e.Message)
}

// ParseError is returned when transaction trytes cannot be decoded.
type ParseError struct {
	Message string // Human-readable error message
	Cause   error  // Underlying decode error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Error codes used throughout the bundle pipeline.
const (
	ErrInvalidInput         = "INVALID_INPUT"          // Input data is invalid or malformed
	ErrAlreadyFinalized     = "ALREADY_FINALIZED"      // Bundle hash already computed
	ErrNotFinalized         = "NOT_FINALIZED"          // Operation needs a bundle hash
	ErrEmptyBundle          = "EMPTY_BUNDLE"           // Bundle holds no transactions
	ErrInsufficientFunds    = "INSUFFICIENT_FUNDS"     // Outputs exceed inputs
	ErrUnspentInputs        = "UNSPENT_INPUTS"         // Inputs exceed outputs and no change address is set
	ErrMissingKeyIndex      = "MISSING_KEY_INDEX"      // Input address has no key index
	ErrMissingSecurityLevel = "MISSING_SECURITY_LEVEL" // Input address has no security level
	ErrMissingBalance       = "MISSING_BALANCE"        // Input address has no known balance
	ErrNotAnInput           = "NOT_AN_INPUT"           // Transaction does not spend
	ErrAlreadySigned        = "ALREADY_SIGNED"         // Signature fragment already present
	ErrIndexOutOfRange      = "INDEX_OUT_OF_RANGE"     // Transaction index outside the bundle
	ErrConflictingData      = "CONFLICTING_DATA"       // Co-signed copies disagree
)
