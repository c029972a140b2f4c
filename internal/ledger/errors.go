package ledger

import "errors"

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("ledger: document not found")
	// ErrDateRequired indicates a missing document date.
	ErrDateRequired = errors.New("ledger: document date is required")
	// ErrNoEntries indicates a document submitted without entry rows.
	ErrNoEntries = errors.New("ledger: document requires at least one entry")
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = errors.New("ledger: document debits and credits must balance")
	// ErrEmptyDocument indicates a balanced document whose total is zero.
	ErrEmptyDocument = errors.New("ledger: document total must be greater than zero")
	// ErrNegativeAmount indicates a negative bed or bes value.
	ErrNegativeAmount = errors.New("ledger: entry amounts must not be negative")
	// ErrInvalidAmount indicates an amount that does not parse as a decimal.
	ErrInvalidAmount = errors.New("ledger: entry amount is not a valid decimal")
	// ErrBothSides indicates an entry with both bed and bes positive.
	ErrBothSides = errors.New("ledger: entry cannot carry both debit and credit")
	// ErrUnknownAccount indicates an entry referencing a missing moein or tafsili.
	ErrUnknownAccount = errors.New("ledger: entry references an unknown account")
	// ErrSystemDocument rejects mutating a document generated by another subsystem.
	ErrSystemDocument = errors.New("ledger: system documents are read-only")
	// ErrSourceAlreadyPosted indicates the collaborator source ref was posted before.
	ErrSourceAlreadyPosted = errors.New("ledger: source reference already posted")
)
