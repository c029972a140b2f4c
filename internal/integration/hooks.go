package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daftar-erp/daftar/internal/ledger"
)

// Ledger exposes the posting operation required by collaborator hooks.
type Ledger interface {
	PostSystemDocument(ctx context.Context, in ledger.SystemPostingInput) (ledger.FinancialDocument, error)
}

// WarehouseLine carries one accounting line derived from a warehouse movement.
type WarehouseLine struct {
	MoeinID     int64
	TafsiliID   *int64
	Description string
	Bed         decimal.Decimal
	Bes         decimal.Decimal
}

// WarehouseTransactionPostedEvent is emitted by the warehouse subsystem when
// a stock movement needs a ledger document. TransactionRef identifies the
// movement and makes posting idempotent.
type WarehouseTransactionPostedEvent struct {
	TransactionRef uuid.UUID
	OccurredAt     time.Time
	Description    string
	Lines          []WarehouseLine
}

// Hooks wires collaborator events into the ledger document engine.
type Hooks struct {
	ledger Ledger
}

// NewHooks constructs integration hooks.
func NewHooks(l Ledger) *Hooks {
	return &Hooks{ledger: l}
}

// HandleWarehouseTransactionPosted posts the system document for a warehouse
// movement. A redelivered event is a no-op: the source link makes the ledger
// reject the duplicate, which this hook treats as success.
func (h *Hooks) HandleWarehouseTransactionPosted(ctx context.Context, evt WarehouseTransactionPostedEvent) error {
	if h == nil || h.ledger == nil {
		return nil
	}
	if evt.TransactionRef == uuid.Nil {
		return errors.New("integration: transaction ref required")
	}
	if evt.OccurredAt.IsZero() {
		return errors.New("integration: transaction date required")
	}
	input := ledger.SystemPostingInput{
		DocumentInput: ledger.DocumentInput{
			DocDate:     evt.OccurredAt,
			Description: evt.Description,
		},
		SourceModule: "WAREHOUSE",
		SourceRef:    evt.TransactionRef,
	}
	for _, line := range evt.Lines {
		input.Entries = append(input.Entries, ledger.EntryInput{
			MoeinID:     line.MoeinID,
			TafsiliID:   line.TafsiliID,
			Description: line.Description,
			Bed:         line.Bed,
			Bes:         line.Bes,
		})
	}
	_, err := h.ledger.PostSystemDocument(ctx, input)
	if errors.Is(err, ledger.ErrSourceAlreadyPosted) {
		return nil
	}
	return err
}
