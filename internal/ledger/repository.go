package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository encapsulates DB operations for financial documents.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]FinancialDocument, error)
	Get(ctx context.Context, id int64) (FinancialDocument, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within one unit of work.
// Implementations backed by a store without multi-statement transactions must
// still honor the call sequence; the service compensates explicitly when
// entry insertion fails after the header write.
type TxRepository interface {
	InsertDocument(ctx context.Context, doc FinancialDocument) (FinancialDocument, error)
	InsertEntries(ctx context.Context, docID int64, entries []EntryInput) error
	DeleteEntries(ctx context.Context, docID int64) error
	UpdateHeader(ctx context.Context, id int64, in DocumentInput) error
	GetDocument(ctx context.Context, id int64) (FinancialDocument, error)
	DeleteDocument(ctx context.Context, id int64) error
	MoeinExists(ctx context.Context, id int64) (bool, error)
	TafsiliExists(ctx context.Context, id int64) (bool, error)
	LinkSource(ctx context.Context, module string, ref uuid.UUID, docID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed document repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const docColumns = `id, doc_no, doc_date, manual_no, description, doc_type, status, source_ref, created_at, updated_at`

func scanDocument(row pgx.Row) (FinancialDocument, error) {
	var d FinancialDocument
	err := row.Scan(&d.ID, &d.DocNo, &d.DocDate, &d.ManualNo, &d.Description, &d.Type, &d.Status, &d.SourceRef, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *repository) List(ctx context.Context, filter Filter) ([]FinancialDocument, error) {
	query := `SELECT ` + docColumns + ` FROM financial_documents WHERE 1=1`
	args := []any{}
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("$%d", n)
	}
	if filter.From != nil {
		query += ` AND doc_date >= ` + next()
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND doc_date <= ` + next()
		args = append(args, *filter.To)
	}
	if filter.Type != "" {
		query += ` AND doc_type = ` + next()
		args = append(args, filter.Type)
	}
	// Newest first; same-day documents sort by most recently created.
	query += ` ORDER BY doc_date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next()
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []FinancialDocument
	index := map[int64]int{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		index[d.ID] = len(docs)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return docs, nil
	}

	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	entries, err := r.loadEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		i := index[e.DocID]
		docs[i].Entries = append(docs[i].Entries, e)
	}
	return docs, nil
}

func (r *repository) loadEntries(ctx context.Context, docIDs []int64) ([]FinancialEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.doc_id, e.moein_id, e.tafsili_id, e.description,
e.bed::text, e.bes::text, e.created_at, m.code, m.title, COALESCE(t.title, '')
FROM financial_entries e
JOIN moein_accounts m ON m.id = e.moein_id
LEFT JOIN tafsili_accounts t ON t.id = e.tafsili_id
WHERE e.doc_id = ANY($1)
ORDER BY e.doc_id, e.id ASC`, docIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinancialEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(rows pgx.Rows) (FinancialEntry, error) {
	var e FinancialEntry
	var bed, bes string
	if err := rows.Scan(&e.ID, &e.DocID, &e.MoeinID, &e.TafsiliID, &e.Description,
		&bed, &bes, &e.CreatedAt, &e.MoeinCode, &e.MoeinTitle, &e.TafsiliTitle); err != nil {
		return FinancialEntry{}, err
	}
	var err error
	if e.Bed, err = decimal.NewFromString(bed); err != nil {
		return FinancialEntry{}, err
	}
	if e.Bes, err = decimal.NewFromString(bes); err != nil {
		return FinancialEntry{}, err
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (FinancialDocument, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+docColumns+` FROM financial_documents WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialDocument{}, ErrNotFound
		}
		return FinancialDocument{}, err
	}
	entries, err := r.loadEntries(ctx, []int64{id})
	if err != nil {
		return FinancialDocument{}, err
	}
	d.Entries = entries
	return d, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// InsertDocument writes the header. doc_no comes from the store's sequence,
// so it is monotonic and immutable from the moment the row exists.
func (r *txRepository) InsertDocument(ctx context.Context, doc FinancialDocument) (FinancialDocument, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO financial_documents (doc_date, manual_no, description, doc_type, status, source_ref)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, doc_no, created_at, updated_at`,
		doc.DocDate, doc.ManualNo, doc.Description, doc.Type, doc.Status, doc.SourceRef).
		Scan(&doc.ID, &doc.DocNo, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return FinancialDocument{}, err
	}
	return doc, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, docID int64, entries []EntryInput) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO financial_entries (doc_id, moein_id, tafsili_id, description, bed, bes)
VALUES ($1,$2,$3,$4,$5,$6)`, docID, e.MoeinID, e.TafsiliID, e.Description, e.Bed.StringFixed(2), e.Bes.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteEntries(ctx context.Context, docID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM financial_entries WHERE doc_id=$1`, docID)
	return err
}

func (r *txRepository) UpdateHeader(ctx context.Context, id int64, in DocumentInput) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE financial_documents SET doc_date=$2, manual_no=$3, description=$4, updated_at=NOW()
WHERE id=$1`, id, in.DocDate, in.ManualNo, in.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) GetDocument(ctx context.Context, id int64) (FinancialDocument, error) {
	d, err := scanDocument(r.tx.QueryRow(ctx, `SELECT `+docColumns+` FROM financial_documents WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return FinancialDocument{}, ErrNotFound
	}
	return d, err
}

func (r *txRepository) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM financial_entries WHERE doc_id=$1`, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM financial_documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) MoeinExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM moein_accounts WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) TafsiliExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tafsili_accounts WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) LinkSource(ctx context.Context, module string, ref uuid.UUID, docID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (module, ref_id, doc_id) VALUES ($1,$2,$3)`, module, ref, docID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSourceAlreadyPosted
		}
		return err
	}
	return nil
}
