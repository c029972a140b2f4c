package coa

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for the account hierarchy.
type Repository interface {
	ListGroups(ctx context.Context) ([]Group, error)
	GetGroup(ctx context.Context, id int64) (Group, error)
	InsertGroup(ctx context.Context, g Group) (Group, error)
	UpdateGroup(ctx context.Context, id int64, g Group) error
	DeleteGroup(ctx context.Context, id int64) error

	ListGLs(ctx context.Context, groupID int64) ([]GeneralLedger, error)
	GetGL(ctx context.Context, id int64) (GeneralLedger, error)
	InsertGL(ctx context.Context, gl GeneralLedger) (GeneralLedger, error)
	UpdateGL(ctx context.Context, id int64, gl GeneralLedger) error
	DeleteGL(ctx context.Context, id int64) error

	ListMoeins(ctx context.Context, glID int64) ([]Moein, error)
	GetMoein(ctx context.Context, id int64) (Moein, error)
	InsertMoein(ctx context.Context, m Moein) (Moein, error)
	UpdateMoein(ctx context.Context, id int64, m Moein) error
	DeleteMoein(ctx context.Context, id int64) error

	ListTafsilis(ctx context.Context, typ TafsiliType) ([]Tafsili, error)
	GetTafsili(ctx context.Context, id int64) (Tafsili, error)
	InsertTafsili(ctx context.Context, t Tafsili) (Tafsili, error)
	UpdateTafsili(ctx context.Context, id int64, t Tafsili) error
	DeleteTafsili(ctx context.Context, id int64) error

	// MaxCode returns the highest code currently stored in the scope compared
	// numerically, or "" when the scope holds no numeric codes. It must read
	// committed state at call time; caching a maximum would serve stale codes.
	MaxCode(ctx context.Context, level Level, scope CodeScope) (string, error)

	CountGLsByGroup(ctx context.Context, groupID int64) (int64, error)
	CountMoeinsByGL(ctx context.Context, glID int64) (int64, error)
	CountEntriesByMoein(ctx context.Context, moeinID int64) (int64, error)
	CountEntriesByTafsili(ctx context.Context, tafsiliID int64) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed account repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// mapInsertErr turns a unique-violation on a code index into ErrDuplicateCode.
// The index is the authoritative guard for the read-then-insert code race.
func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}

func (r *repository) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, title, nature, category, created_at, updated_at
FROM account_groups ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Code, &g.Title, &g.Nature, &g.Category, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *repository) GetGroup(ctx context.Context, id int64) (Group, error) {
	var g Group
	err := r.pool.QueryRow(ctx, `SELECT id, code, title, nature, category, created_at, updated_at
FROM account_groups WHERE id=$1`, id).
		Scan(&g.ID, &g.Code, &g.Title, &g.Nature, &g.Category, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Group{}, ErrNotFound
	}
	return g, err
}

func (r *repository) InsertGroup(ctx context.Context, g Group) (Group, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO account_groups (code, title, nature, category)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, g.Code, g.Title, g.Nature, g.Category).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return Group{}, mapInsertErr(err)
	}
	return g, nil
}

func (r *repository) UpdateGroup(ctx context.Context, id int64, g Group) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE account_groups SET code=$2, title=$3, nature=$4, category=$5, updated_at=NOW()
WHERE id=$1`, id, g.Code, g.Title, g.Nature, g.Category)
	if err != nil {
		return mapInsertErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteGroup(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM account_groups WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListGLs(ctx context.Context, groupID int64) ([]GeneralLedger, error) {
	query := `SELECT id, code, title, group_id, created_at, updated_at FROM general_ledgers`
	args := []any{}
	if groupID != 0 {
		query += ` WHERE group_id=$1`
		args = append(args, groupID)
	}
	query += ` ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GeneralLedger
	for rows.Next() {
		var gl GeneralLedger
		if err := rows.Scan(&gl.ID, &gl.Code, &gl.Title, &gl.GroupID, &gl.CreatedAt, &gl.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, gl)
	}
	return out, rows.Err()
}

func (r *repository) GetGL(ctx context.Context, id int64) (GeneralLedger, error) {
	var gl GeneralLedger
	err := r.pool.QueryRow(ctx, `SELECT id, code, title, group_id, created_at, updated_at
FROM general_ledgers WHERE id=$1`, id).
		Scan(&gl.ID, &gl.Code, &gl.Title, &gl.GroupID, &gl.CreatedAt, &gl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return GeneralLedger{}, ErrNotFound
	}
	return gl, err
}

func (r *repository) InsertGL(ctx context.Context, gl GeneralLedger) (GeneralLedger, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO general_ledgers (code, title, group_id)
VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`, gl.Code, gl.Title, gl.GroupID).
		Scan(&gl.ID, &gl.CreatedAt, &gl.UpdatedAt)
	if err != nil {
		return GeneralLedger{}, mapInsertErr(err)
	}
	return gl, nil
}

func (r *repository) UpdateGL(ctx context.Context, id int64, gl GeneralLedger) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE general_ledgers SET code=$2, title=$3, group_id=$4, updated_at=NOW()
WHERE id=$1`, id, gl.Code, gl.Title, gl.GroupID)
	if err != nil {
		return mapInsertErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteGL(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM general_ledgers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListMoeins(ctx context.Context, glID int64) ([]Moein, error) {
	query := `SELECT id, code, title, gl_id, created_at, updated_at FROM moein_accounts`
	args := []any{}
	if glID != 0 {
		query += ` WHERE gl_id=$1`
		args = append(args, glID)
	}
	query += ` ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Moein
	for rows.Next() {
		var m Moein
		if err := rows.Scan(&m.ID, &m.Code, &m.Title, &m.GLID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) GetMoein(ctx context.Context, id int64) (Moein, error) {
	var m Moein
	err := r.pool.QueryRow(ctx, `SELECT id, code, title, gl_id, created_at, updated_at
FROM moein_accounts WHERE id=$1`, id).
		Scan(&m.ID, &m.Code, &m.Title, &m.GLID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Moein{}, ErrNotFound
	}
	return m, err
}

func (r *repository) InsertMoein(ctx context.Context, m Moein) (Moein, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO moein_accounts (code, title, gl_id)
VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`, m.Code, m.Title, m.GLID).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Moein{}, mapInsertErr(err)
	}
	return m, nil
}

func (r *repository) UpdateMoein(ctx context.Context, id int64, m Moein) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE moein_accounts SET code=$2, title=$3, gl_id=$4, updated_at=NOW()
WHERE id=$1`, id, m.Code, m.Title, m.GLID)
	if err != nil {
		return mapInsertErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteMoein(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM moein_accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListTafsilis(ctx context.Context, typ TafsiliType) ([]Tafsili, error) {
	query := `SELECT id, code, title, tafsili_type, is_active, created_at, updated_at FROM tafsili_accounts`
	args := []any{}
	if typ != "" {
		query += ` WHERE tafsili_type=$1`
		args = append(args, typ)
	}
	query += ` ORDER BY tafsili_type ASC, code ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tafsili
	for rows.Next() {
		var t Tafsili
		if err := rows.Scan(&t.ID, &t.Code, &t.Title, &t.Type, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) GetTafsili(ctx context.Context, id int64) (Tafsili, error) {
	var t Tafsili
	err := r.pool.QueryRow(ctx, `SELECT id, code, title, tafsili_type, is_active, created_at, updated_at
FROM tafsili_accounts WHERE id=$1`, id).
		Scan(&t.ID, &t.Code, &t.Title, &t.Type, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tafsili{}, ErrNotFound
	}
	return t, err
}

func (r *repository) InsertTafsili(ctx context.Context, t Tafsili) (Tafsili, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO tafsili_accounts (code, title, tafsili_type, is_active)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, t.Code, t.Title, t.Type, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Tafsili{}, mapInsertErr(err)
	}
	return t, nil
}

func (r *repository) UpdateTafsili(ctx context.Context, id int64, t Tafsili) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tafsili_accounts SET code=$2, title=$3, is_active=$4, updated_at=NOW()
WHERE id=$1`, id, t.Code, t.Title, t.IsActive)
	if err != nil {
		return mapInsertErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteTafsili(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tafsili_accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MaxCode(ctx context.Context, level Level, scope CodeScope) (string, error) {
	// The maximum is numeric, not lexicographic: a text MAX ranks "99" above
	// "100" once a band outgrows its width, and above operator-entered short
	// codes like "9". Non-numeric codes are excluded from generation.
	var query string
	var args []any
	switch level {
	case LevelGroup:
		query = `SELECT COALESCE(MAX(code::bigint), 0) FROM account_groups WHERE code ~ '^[0-9]+$'`
	case LevelGL:
		// Generation scans the whole level; the parent only seeds the scope.
		query = `SELECT COALESCE(MAX(code::bigint), 0) FROM general_ledgers WHERE code ~ '^[0-9]+$'`
	case LevelMoein:
		query = `SELECT COALESCE(MAX(code::bigint), 0) FROM moein_accounts WHERE code ~ '^[0-9]+$'`
	case LevelTafsili:
		query = `SELECT COALESCE(MAX(code::bigint), 0) FROM tafsili_accounts WHERE tafsili_type=$1 AND code ~ '^[0-9]+$'`
		args = append(args, scope.TafsiliType)
	default:
		return "", ErrInvalidScope
	}
	var max int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&max); err != nil {
		return "", err
	}
	if max == 0 {
		return "", nil
	}
	return strconv.FormatInt(max, 10), nil
}

func (r *repository) CountGLsByGroup(ctx context.Context, groupID int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM general_ledgers WHERE group_id=$1`, groupID)
}

func (r *repository) CountMoeinsByGL(ctx context.Context, glID int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM moein_accounts WHERE gl_id=$1`, glID)
}

func (r *repository) CountEntriesByMoein(ctx context.Context, moeinID int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM financial_entries WHERE moein_id=$1`, moeinID)
}

func (r *repository) CountEntriesByTafsili(ctx context.Context, tafsiliID int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM financial_entries WHERE tafsili_id=$1`, tafsiliID)
}

func (r *repository) count(ctx context.Context, query string, arg int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, query, arg).Scan(&n)
	return n, err
}
