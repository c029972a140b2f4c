package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daftar-erp/daftar/internal/shared"
)

// AuditPort records document mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the ledger document engine.
type Service struct {
	repo   Repository
	audit  AuditPort
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, audit AuditPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns documents with entries and resolved account titles, newest
// first, served through the versioned cache when one is configured.
func (s *Service) List(ctx context.Context, filter Filter) ([]FinancialDocument, error) {
	if s.cache == nil {
		return s.repo.List(ctx, filter)
	}
	key, err := s.cache.BuildKey(ctx, "ledger", "docs", filter.cacheKey())
	if err != nil {
		return s.repo.List(ctx, filter)
	}
	var docs []FinancialDocument
	err = s.cache.FetchJSON(ctx, key, &docs, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx, filter)
	})
	return docs, err
}

func (s *Service) Get(ctx context.Context, id int64) (FinancialDocument, error) {
	return s.repo.Get(ctx, id)
}

// CreateManualDocument validates and persists an operator-entered document.
// Header and entries are written in one unit of work; if the store cannot
// make the two writes atomic, the explicit DeleteDocument below is the
// compensating action that removes the orphan header.
func (s *Service) CreateManualDocument(ctx context.Context, in DocumentInput) (FinancialDocument, error) {
	entries, err := in.normalizedEntries()
	if err != nil {
		return FinancialDocument{}, err
	}
	var created FinancialDocument
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := resolveAccounts(ctx, tx, entries); err != nil {
			return err
		}
		doc, err := tx.InsertDocument(ctx, FinancialDocument{
			DocDate:     in.DocDate,
			ManualNo:    in.ManualNo,
			Description: in.Description,
			Type:        DocTypeManual,
			Status:      DocStatusFinal,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, doc.ID, entries); err != nil {
			if delErr := tx.DeleteDocument(ctx, doc.ID); delErr != nil {
				s.logger.Error("compensating header delete failed",
					slog.Int64("doc_id", doc.ID), slog.Any("error", delErr))
			}
			return err
		}
		created = doc
		return nil
	})
	if err != nil {
		return FinancialDocument{}, err
	}
	created.Entries = toEntries(created.ID, entries, s.now())
	s.invalidate(ctx)
	s.record(ctx, "ledger.document.create", created.ID, map[string]any{
		"doc_no": created.DocNo,
		"total":  created.Total().String(),
	})
	return created, nil
}

// UpdateManualDocument revalidates and replaces the document wholesale.
// Entries are deleted and reinserted, so resubmitting identical rows is
// idempotent. DocNo is never touched.
func (s *Service) UpdateManualDocument(ctx context.Context, id int64, in DocumentInput) (FinancialDocument, error) {
	entries, err := in.normalizedEntries()
	if err != nil {
		return FinancialDocument{}, err
	}
	var updated FinancialDocument
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if current.Type == DocTypeSystem {
			return ErrSystemDocument
		}
		if err := resolveAccounts(ctx, tx, entries); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, id, in); err != nil {
			return err
		}
		if err := tx.DeleteEntries(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, id, entries); err != nil {
			return err
		}
		updated = current
		updated.DocDate = in.DocDate
		updated.ManualNo = in.ManualNo
		updated.Description = in.Description
		return nil
	})
	if err != nil {
		return FinancialDocument{}, err
	}
	updated.Entries = toEntries(id, entries, s.now())
	s.invalidate(ctx)
	s.record(ctx, "ledger.document.update", id, map[string]any{"doc_no": updated.DocNo})
	return updated, nil
}

// DeleteDocument removes a manual document together with its entries.
func (s *Service) DeleteDocument(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if current.Type == DocTypeSystem {
			return ErrSystemDocument
		}
		return tx.DeleteDocument(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.record(ctx, "ledger.document.delete", id, nil)
	return nil
}

// PostSystemDocument is the warehouse collaborator's entry point. It applies
// the same balance validation as manual creation, marks the document SYSTEM,
// and links the source reference so a retried posting cannot double-book.
func (s *Service) PostSystemDocument(ctx context.Context, in SystemPostingInput) (FinancialDocument, error) {
	entries, err := in.normalizedEntries()
	if err != nil {
		return FinancialDocument{}, err
	}
	if in.SourceModule == "" {
		return FinancialDocument{}, fmt.Errorf("ledger: source module required")
	}
	var created FinancialDocument
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := resolveAccounts(ctx, tx, entries); err != nil {
			return err
		}
		ref := in.SourceRef
		doc, err := tx.InsertDocument(ctx, FinancialDocument{
			DocDate:     in.DocDate,
			Description: in.Description,
			Type:        DocTypeSystem,
			Status:      DocStatusFinal,
			SourceRef:   &ref,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, doc.ID, entries); err != nil {
			if delErr := tx.DeleteDocument(ctx, doc.ID); delErr != nil {
				s.logger.Error("compensating header delete failed",
					slog.Int64("doc_id", doc.ID), slog.Any("error", delErr))
			}
			return err
		}
		if err := tx.LinkSource(ctx, in.SourceModule, in.SourceRef, doc.ID); err != nil {
			// Same compensation as the entries step: on a store without a
			// surrounding transaction a rejected duplicate must not leave the
			// freshly written document behind.
			if delErr := tx.DeleteDocument(ctx, doc.ID); delErr != nil {
				s.logger.Error("compensating header delete failed",
					slog.Int64("doc_id", doc.ID), slog.Any("error", delErr))
			}
			return err
		}
		created = doc
		return nil
	})
	if err != nil {
		return FinancialDocument{}, err
	}
	created.Entries = toEntries(created.ID, entries, s.now())
	s.invalidate(ctx)
	s.record(ctx, "ledger.document.post_system", created.ID, map[string]any{
		"doc_no":     created.DocNo,
		"source":     in.SourceModule,
		"source_ref": in.SourceRef.String(),
	})
	return created, nil
}

func resolveAccounts(ctx context.Context, tx TxRepository, entries []EntryInput) error {
	for _, e := range entries {
		ok, err := tx.MoeinExists(ctx, e.MoeinID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAccount
		}
		if e.TafsiliID != nil {
			ok, err := tx.TafsiliExists(ctx, *e.TafsiliID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrUnknownAccount
			}
		}
	}
	return nil
}

func toEntries(docID int64, in []EntryInput, ts time.Time) []FinancialEntry {
	out := make([]FinancialEntry, 0, len(in))
	for _, e := range in {
		out = append(out, FinancialEntry{
			DocID:       docID,
			MoeinID:     e.MoeinID,
			TafsiliID:   e.TafsiliID,
			Description: e.Description,
			Bed:         e.Bed,
			Bes:         e.Bes,
			CreatedAt:   ts,
		})
	}
	return out
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("ledger cache bump", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "financial_document",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
