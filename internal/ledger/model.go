package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocType separates operator-entered documents from collaborator-generated ones.
type DocType string

const (
	DocTypeManual DocType = "MANUAL"
	DocTypeSystem DocType = "SYSTEM"
)

// DocStatus enumerates the document lifecycle. Manual documents are written
// FINAL directly; DRAFT is stored but never produced by this engine.
type DocStatus string

const (
	DocStatusDraft DocStatus = "DRAFT"
	DocStatusFinal DocStatus = "FINAL"
)

// FinancialDocument is a balanced set of debit/credit entries under one header.
// DocNo is assigned by the store, monotonically increasing, and never changes.
type FinancialDocument struct {
	ID          int64      `json:"id"`
	DocNo       int64      `json:"doc_no"`
	DocDate     time.Time  `json:"doc_date"`
	ManualNo    string     `json:"manual_no,omitempty"`
	Description string     `json:"description,omitempty"`
	Type        DocType    `json:"doc_type"`
	Status      DocStatus  `json:"status"`
	SourceRef   *uuid.UUID `json:"source_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Entries []FinancialEntry `json:"entries,omitempty"`
}

// FinancialEntry is one debit-or-credit line of a document. Bed and Bes are
// mutually exclusive: at most one of them is positive.
type FinancialEntry struct {
	ID          int64           `json:"id"`
	DocID       int64           `json:"doc_id"`
	MoeinID     int64           `json:"moein_id"`
	TafsiliID   *int64          `json:"tafsili_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Bed         decimal.Decimal `json:"bed"`
	Bes         decimal.Decimal `json:"bes"`
	CreatedAt   time.Time       `json:"created_at"`

	// Resolved display fields, populated by list/get queries.
	MoeinCode    string `json:"moein_code,omitempty"`
	MoeinTitle   string `json:"moein_title,omitempty"`
	TafsiliTitle string `json:"tafsili_title,omitempty"`
}

// Total returns the document amount, the sum of debits. For any valid
// persisted document the sum of credits is the same number.
func (d FinancialDocument) Total() decimal.Decimal {
	return ComputeDocumentTotal(d.Entries)
}

// ComputeDocumentTotal sums the debit side of a set of entries.
func ComputeDocumentTotal(entries []FinancialEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Bed)
	}
	return total
}
