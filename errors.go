package verifykit

import "errors"

var (
	// ErrNoAddresses is returned by VerifyBatch when the input is empty.
	ErrNoAddresses = errors.New("verifykit: no addresses to verify")

	// ErrBatchTooLarge is returned by VerifyBatch when the input exceeds
	// MaxBatchSize. The batch is refused before any address is scheduled.
	ErrBatchTooLarge = errors.New("verifykit: batch exceeds maximum size")
)
