package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memoryRepo implements Repository and TxRepository over maps. Its WithTx has
// no rollback on purpose: writes made before a failure stay visible, which is
// exactly the store shape the compensating header delete exists for.
type memoryRepo struct {
	docs      map[int64]FinancialDocument
	entries   map[int64][]FinancialEntry
	links     map[string]int64
	moeins    map[int64]bool
	tafsilis  map[int64]bool
	nextID    int64
	nextDocNo int64
	nextEntry int64

	failInsertEntries error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		docs:     make(map[int64]FinancialDocument),
		entries:  make(map[int64][]FinancialEntry),
		links:    make(map[string]int64),
		moeins:   map[int64]bool{1: true, 2: true, 3: true},
		tafsilis: map[int64]bool{10: true, 11: true},
	}
}

func (r *memoryRepo) List(ctx context.Context, filter Filter) ([]FinancialDocument, error) {
	var out []FinancialDocument
	for _, d := range r.docs {
		if filter.From != nil && d.DocDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && d.DocDate.After(*filter.To) {
			continue
		}
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		d.Entries = r.entries[d.ID]
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DocDate.Equal(out[j].DocDate) {
			return out[i].DocDate.After(out[j].DocDate)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (FinancialDocument, error) {
	return r.GetDocument(ctx, id)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) InsertDocument(ctx context.Context, doc FinancialDocument) (FinancialDocument, error) {
	r.nextID++
	r.nextDocNo++
	doc.ID = r.nextID
	doc.DocNo = r.nextDocNo
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *memoryRepo) InsertEntries(ctx context.Context, docID int64, entries []EntryInput) error {
	if r.failInsertEntries != nil {
		return r.failInsertEntries
	}
	for _, e := range entries {
		r.nextEntry++
		r.entries[docID] = append(r.entries[docID], FinancialEntry{
			ID:          r.nextEntry,
			DocID:       docID,
			MoeinID:     e.MoeinID,
			TafsiliID:   e.TafsiliID,
			Description: e.Description,
			Bed:         e.Bed,
			Bes:         e.Bes,
			CreatedAt:   time.Now(),
		})
	}
	return nil
}

func (r *memoryRepo) DeleteEntries(ctx context.Context, docID int64) error {
	delete(r.entries, docID)
	return nil
}

func (r *memoryRepo) UpdateHeader(ctx context.Context, id int64, in DocumentInput) error {
	d, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.DocDate = in.DocDate
	d.ManualNo = in.ManualNo
	d.Description = in.Description
	d.UpdatedAt = time.Now()
	r.docs[id] = d
	return nil
}

func (r *memoryRepo) GetDocument(ctx context.Context, id int64) (FinancialDocument, error) {
	d, ok := r.docs[id]
	if !ok {
		return FinancialDocument{}, ErrNotFound
	}
	d.Entries = r.entries[id]
	return d, nil
}

func (r *memoryRepo) DeleteDocument(ctx context.Context, id int64) error {
	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	delete(r.entries, id)
	return nil
}

func (r *memoryRepo) MoeinExists(ctx context.Context, id int64) (bool, error) {
	return r.moeins[id], nil
}

func (r *memoryRepo) TafsiliExists(ctx context.Context, id int64) (bool, error) {
	return r.tafsilis[id], nil
}

func (r *memoryRepo) LinkSource(ctx context.Context, module string, ref uuid.UUID, docID int64) error {
	key := module + ":" + ref.String()
	if _, exists := r.links[key]; exists {
		return ErrSourceAlreadyPosted
	}
	r.links[key] = docID
	return nil
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func docDate(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
}

func balancedInput(t *testing.T) DocumentInput {
	return DocumentInput{
		DocDate:     docDate(t),
		Description: "opening balance",
		Entries: []EntryInput{
			{MoeinID: 1, Bed: amt("1000")},
			{MoeinID: 2, Bes: amt("1000")},
		},
	}
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, nil, nil, nil), repo
}

func TestCreateManualDocumentRoundTrip(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.CreateManualDocument(ctx, balancedInput(t))
	require.NoError(t, err)
	require.Equal(t, int64(1), created.DocNo)
	require.Equal(t, DocTypeManual, created.Type)
	require.Equal(t, DocStatusFinal, created.Status)
	require.Len(t, created.Entries, 2)
	require.True(t, created.Total().Equal(amt("1000")))

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 2)
	require.True(t, stored.Entries[0].Bed.Equal(amt("1000")))
	require.True(t, stored.Entries[1].Bes.Equal(amt("1000")))
}

func TestCreateManualDocumentRejectsUnbalanced(t *testing.T) {
	svc, repo := newTestService()
	in := balancedInput(t)
	in.Entries[1].Bes = amt("999.99")

	_, err := svc.CreateManualDocument(context.Background(), in)
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.docs)
}

func TestCreateManualDocumentValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := balancedInput(t)
	in.DocDate = time.Time{}
	_, err := svc.CreateManualDocument(ctx, in)
	require.ErrorIs(t, err, ErrDateRequired)

	_, err = svc.CreateManualDocument(ctx, DocumentInput{DocDate: docDate(t)})
	require.ErrorIs(t, err, ErrNoEntries)

	in = balancedInput(t)
	in.Entries[0].Bed = amt("-5")
	_, err = svc.CreateManualDocument(ctx, in)
	require.ErrorIs(t, err, ErrNegativeAmount)

	in = balancedInput(t)
	in.Entries[0].Bes = amt("1")
	_, err = svc.CreateManualDocument(ctx, in)
	require.ErrorIs(t, err, ErrBothSides)

	// All-blank rows balance at zero, which is not a document.
	_, err = svc.CreateManualDocument(ctx, DocumentInput{
		DocDate: docDate(t),
		Entries: []EntryInput{{MoeinID: 1}, {MoeinID: 2}},
	})
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestCreateManualDocumentDropsBlankRows(t *testing.T) {
	svc, _ := newTestService()
	in := balancedInput(t)
	in.Entries = append(in.Entries, EntryInput{MoeinID: 3})

	created, err := svc.CreateManualDocument(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, created.Entries, 2)
}

func TestCreateManualDocumentUnknownAccount(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	in := balancedInput(t)
	in.Entries[0].MoeinID = 999
	_, err := svc.CreateManualDocument(ctx, in)
	require.ErrorIs(t, err, ErrUnknownAccount)

	missing := int64(999)
	in = balancedInput(t)
	in.Entries[0].TafsiliID = &missing
	_, err = svc.CreateManualDocument(ctx, in)
	require.ErrorIs(t, err, ErrUnknownAccount)
	require.Empty(t, repo.docs)
}

func TestCreateCompensatesHeaderOnEntryFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.failInsertEntries = errors.New("disk full")

	_, err := svc.CreateManualDocument(context.Background(), balancedInput(t))
	require.Error(t, err)
	// The header written before the failure must not survive as an orphan.
	require.Empty(t, repo.docs)
	require.Empty(t, repo.entries)
}

func TestUpdateManualDocumentReplacesEntries(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.CreateManualDocument(ctx, balancedInput(t))
	require.NoError(t, err)

	taf := int64(10)
	updated, err := svc.UpdateManualDocument(ctx, created.ID, DocumentInput{
		DocDate:     docDate(t).AddDate(0, 0, 1),
		ManualNo:    "M-7",
		Description: "corrected",
		Entries: []EntryInput{
			{MoeinID: 1, TafsiliID: &taf, Bed: amt("250.50")},
			{MoeinID: 2, Bes: amt("250.50")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, created.DocNo, updated.DocNo)
	require.True(t, updated.Total().Equal(amt("250.50")))

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 2)
	require.Equal(t, "M-7", stored.ManualNo)
	require.NotNil(t, stored.Entries[0].TafsiliID)
	require.Equal(t, taf, *stored.Entries[0].TafsiliID)
}

func TestUpdateIsIdempotent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.CreateManualDocument(ctx, balancedInput(t))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.UpdateManualDocument(ctx, created.ID, balancedInput(t))
		require.NoError(t, err)
	}
	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 2)
	require.Equal(t, created.DocNo, stored.DocNo)
}

func TestSystemDocumentIsImmutable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	posted, err := svc.PostSystemDocument(ctx, SystemPostingInput{
		DocumentInput: balancedInput(t),
		SourceModule:  "WAREHOUSE",
		SourceRef:     uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, DocTypeSystem, posted.Type)
	require.NotNil(t, posted.SourceRef)

	_, err = svc.UpdateManualDocument(ctx, posted.ID, balancedInput(t))
	require.ErrorIs(t, err, ErrSystemDocument)
	require.ErrorIs(t, svc.DeleteDocument(ctx, posted.ID), ErrSystemDocument)
}

func TestPostSystemDocumentIdempotentPerSource(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	ref := uuid.New()

	in := SystemPostingInput{DocumentInput: balancedInput(t), SourceModule: "WAREHOUSE", SourceRef: ref}
	first, err := svc.PostSystemDocument(ctx, in)
	require.NoError(t, err)

	_, err = svc.PostSystemDocument(ctx, in)
	require.ErrorIs(t, err, ErrSourceAlreadyPosted)

	// Only the first posting's document exists; the retry's header and
	// entries are compensated away, not left orphaned.
	require.Equal(t, int64(first.ID), repo.links["WAREHOUSE:"+ref.String()])
	require.Len(t, repo.docs, 1)
	require.Len(t, repo.entries, 1)
	stored, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 2)
}

func TestDeleteManualDocumentRemovesEntries(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.CreateManualDocument(ctx, balancedInput(t))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.entries)

	require.ErrorIs(t, svc.DeleteDocument(ctx, created.ID), ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	older := balancedInput(t)
	older.DocDate = docDate(t).AddDate(0, 0, -3)
	first, err := svc.CreateManualDocument(ctx, older)
	require.NoError(t, err)
	second, err := svc.CreateManualDocument(ctx, balancedInput(t))
	require.NoError(t, err)

	docs, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, second.ID, docs[0].ID)
	require.Equal(t, first.ID, docs[1].ID)

	manualOnly, err := svc.List(ctx, Filter{Type: DocTypeManual, Limit: 1})
	require.NoError(t, err)
	require.Len(t, manualOnly, 1)
	require.Equal(t, second.ID, manualOnly[0].ID)
}
