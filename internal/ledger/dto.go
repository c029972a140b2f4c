package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryInput describes one requested entry row.
type EntryInput struct {
	MoeinID     int64
	TafsiliID   *int64
	Description string
	Bed         decimal.Decimal
	Bes         decimal.Decimal
}

func (e EntryInput) isBlank() bool {
	return e.Bed.IsZero() && e.Bes.IsZero()
}

// DocumentInput groups the header fields and entry rows of a submission.
type DocumentInput struct {
	DocDate     time.Time
	ManualNo    string
	Description string
	Entries     []EntryInput
}

// normalizedEntries validates the input and returns the rows to persist.
// Rows with neither side filled are dropped; if nothing remains the document
// is empty. Each surviving row must carry exactly one positive side, and the
// two sides must sum to the same strictly positive total.
func (in DocumentInput) normalizedEntries() ([]EntryInput, error) {
	if in.DocDate.IsZero() {
		return nil, ErrDateRequired
	}
	if len(in.Entries) == 0 {
		return nil, ErrNoEntries
	}
	var kept []EntryInput
	totalBed, totalBes := decimal.Zero, decimal.Zero
	for _, e := range in.Entries {
		if e.Bed.IsNegative() || e.Bes.IsNegative() {
			return nil, ErrNegativeAmount
		}
		if e.isBlank() {
			continue
		}
		if e.Bed.IsPositive() && e.Bes.IsPositive() {
			return nil, ErrBothSides
		}
		totalBed = totalBed.Add(e.Bed)
		totalBes = totalBes.Add(e.Bes)
		kept = append(kept, e)
	}
	if !totalBed.Equal(totalBes) {
		return nil, ErrUnbalanced
	}
	if totalBed.IsZero() {
		return nil, ErrEmptyDocument
	}
	return kept, nil
}

// SystemPostingInput is what the warehouse collaborator submits. SourceRef
// identifies the originating transaction; posting is idempotent per ref.
type SystemPostingInput struct {
	DocumentInput
	SourceModule string
	SourceRef    uuid.UUID
}

// Filter narrows document listings.
type Filter struct {
	From  *time.Time
	To    *time.Time
	Type  DocType
	Limit int
}

func (f Filter) cacheKey() string {
	from, to := "-", "-"
	if f.From != nil {
		from = f.From.Format("2006-01-02")
	}
	if f.To != nil {
		to = f.To.Format("2006-01-02")
	}
	typ := string(f.Type)
	if typ == "" {
		typ = "all"
	}
	return fmt.Sprintf("%s:%s:%s:%d", from, to, typ, f.Limit)
}
