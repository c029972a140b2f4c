package coa

import "errors"

var (
	// ErrValidation indicates a missing title or code.
	ErrValidation = errors.New("coa: title and code are required")
	// ErrNotFound indicates the requested account record does not exist.
	ErrNotFound = errors.New("coa: account not found")
	// ErrInvalidParent indicates the referenced parent account does not exist.
	ErrInvalidParent = errors.New("coa: parent account does not exist")
	// ErrInvalidScope indicates the next-code scope does not exist or may not be generated for.
	ErrInvalidScope = errors.New("coa: invalid code scope")
	// ErrForbiddenSystemType rejects creating tafsili records of a system-owned type.
	ErrForbiddenSystemType = errors.New("coa: tafsili type is reserved for an external subsystem")
	// ErrSystemOwned rejects mutating a record owned by an external subsystem.
	ErrSystemOwned = errors.New("coa: record is owned by an external subsystem")
	// ErrDuplicateCode surfaces a lost code-uniqueness race; callers re-fetch and retry.
	ErrDuplicateCode = errors.New("coa: account code already exists")
	// ErrHasDependents blocks deletes while children or ledger entries reference the record.
	ErrHasDependents = errors.New("coa: record is referenced by other records")
)
