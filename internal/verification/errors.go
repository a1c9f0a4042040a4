package verification

import "errors"

var (
	// ErrNotFound means the reference does not resolve to a transaction.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidState means the transaction is no longer PENDING or INITIALIZED.
	ErrInvalidState = errors.New("transaction is not in a verifiable state")
	// ErrCurrencyMismatch means the caller's currency differs from the stored one.
	ErrCurrencyMismatch = errors.New("currency does not match the transaction")
	// ErrAmountMismatch means the caller's amount differs from the stored one.
	ErrAmountMismatch = errors.New("amount does not match the transaction")
	// ErrEngineAlreadyRunning means Start was called twice.
	ErrEngineAlreadyRunning = errors.New("verification engine is already running")
	// ErrEngineNotRunning means an operation requires a started engine.
	ErrEngineNotRunning = errors.New("verification engine is not running")
)
