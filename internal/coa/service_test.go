package coa

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	groups   map[int64]Group
	gls      map[int64]GeneralLedger
	moeins   map[int64]Moein
	tafsilis map[int64]Tafsili
	nextID   int64

	entriesByMoein   map[int64]int64
	entriesByTafsili map[int64]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		groups:           make(map[int64]Group),
		gls:              make(map[int64]GeneralLedger),
		moeins:           make(map[int64]Moein),
		tafsilis:         make(map[int64]Tafsili),
		entriesByMoein:   make(map[int64]int64),
		entriesByTafsili: make(map[int64]int64),
	}
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) ListGroups(ctx context.Context) ([]Group, error) {
	var out []Group
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *memoryRepo) GetGroup(ctx context.Context, id int64) (Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (r *memoryRepo) InsertGroup(ctx context.Context, g Group) (Group, error) {
	for _, existing := range r.groups {
		if existing.Code == g.Code {
			return Group{}, ErrDuplicateCode
		}
	}
	g.ID = r.id()
	r.groups[g.ID] = g
	return g, nil
}

func (r *memoryRepo) UpdateGroup(ctx context.Context, id int64, g Group) error {
	if _, ok := r.groups[id]; !ok {
		return ErrNotFound
	}
	g.ID = id
	r.groups[id] = g
	return nil
}

func (r *memoryRepo) DeleteGroup(ctx context.Context, id int64) error {
	if _, ok := r.groups[id]; !ok {
		return ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *memoryRepo) ListGLs(ctx context.Context, groupID int64) ([]GeneralLedger, error) {
	var out []GeneralLedger
	for _, gl := range r.gls {
		if groupID == 0 || gl.GroupID == groupID {
			out = append(out, gl)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetGL(ctx context.Context, id int64) (GeneralLedger, error) {
	gl, ok := r.gls[id]
	if !ok {
		return GeneralLedger{}, ErrNotFound
	}
	return gl, nil
}

func (r *memoryRepo) InsertGL(ctx context.Context, gl GeneralLedger) (GeneralLedger, error) {
	for _, existing := range r.gls {
		if existing.Code == gl.Code {
			return GeneralLedger{}, ErrDuplicateCode
		}
	}
	gl.ID = r.id()
	r.gls[gl.ID] = gl
	return gl, nil
}

func (r *memoryRepo) UpdateGL(ctx context.Context, id int64, gl GeneralLedger) error {
	if _, ok := r.gls[id]; !ok {
		return ErrNotFound
	}
	gl.ID = id
	r.gls[id] = gl
	return nil
}

func (r *memoryRepo) DeleteGL(ctx context.Context, id int64) error {
	if _, ok := r.gls[id]; !ok {
		return ErrNotFound
	}
	delete(r.gls, id)
	return nil
}

func (r *memoryRepo) ListMoeins(ctx context.Context, glID int64) ([]Moein, error) {
	var out []Moein
	for _, m := range r.moeins {
		if glID == 0 || m.GLID == glID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetMoein(ctx context.Context, id int64) (Moein, error) {
	m, ok := r.moeins[id]
	if !ok {
		return Moein{}, ErrNotFound
	}
	return m, nil
}

func (r *memoryRepo) InsertMoein(ctx context.Context, m Moein) (Moein, error) {
	for _, existing := range r.moeins {
		if existing.Code == m.Code {
			return Moein{}, ErrDuplicateCode
		}
	}
	m.ID = r.id()
	r.moeins[m.ID] = m
	return m, nil
}

func (r *memoryRepo) UpdateMoein(ctx context.Context, id int64, m Moein) error {
	if _, ok := r.moeins[id]; !ok {
		return ErrNotFound
	}
	m.ID = id
	r.moeins[id] = m
	return nil
}

func (r *memoryRepo) DeleteMoein(ctx context.Context, id int64) error {
	if _, ok := r.moeins[id]; !ok {
		return ErrNotFound
	}
	delete(r.moeins, id)
	return nil
}

func (r *memoryRepo) ListTafsilis(ctx context.Context, typ TafsiliType) ([]Tafsili, error) {
	var out []Tafsili
	for _, t := range r.tafsilis {
		if typ == "" || t.Type == typ {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetTafsili(ctx context.Context, id int64) (Tafsili, error) {
	t, ok := r.tafsilis[id]
	if !ok {
		return Tafsili{}, ErrNotFound
	}
	return t, nil
}

func (r *memoryRepo) InsertTafsili(ctx context.Context, t Tafsili) (Tafsili, error) {
	for _, existing := range r.tafsilis {
		if existing.Type == t.Type && existing.Code == t.Code {
			return Tafsili{}, ErrDuplicateCode
		}
	}
	t.ID = r.id()
	r.tafsilis[t.ID] = t
	return t, nil
}

func (r *memoryRepo) UpdateTafsili(ctx context.Context, id int64, t Tafsili) error {
	current, ok := r.tafsilis[id]
	if !ok {
		return ErrNotFound
	}
	t.ID = id
	t.Type = current.Type
	r.tafsilis[id] = t
	return nil
}

func (r *memoryRepo) DeleteTafsili(ctx context.Context, id int64) error {
	if _, ok := r.tafsilis[id]; !ok {
		return ErrNotFound
	}
	delete(r.tafsilis, id)
	return nil
}

func (r *memoryRepo) MaxCode(ctx context.Context, level Level, scope CodeScope) (string, error) {
	var max int64
	consider := func(code string) {
		v, err := strconv.ParseInt(code, 10, 64)
		if err != nil {
			return
		}
		if v > max {
			max = v
		}
	}
	switch level {
	case LevelGroup:
		for _, g := range r.groups {
			consider(g.Code)
		}
	case LevelGL:
		for _, gl := range r.gls {
			consider(gl.Code)
		}
	case LevelMoein:
		for _, m := range r.moeins {
			consider(m.Code)
		}
	case LevelTafsili:
		for _, t := range r.tafsilis {
			if t.Type == scope.TafsiliType {
				consider(t.Code)
			}
		}
	}
	if max == 0 {
		return "", nil
	}
	return strconv.FormatInt(max, 10), nil
}

func (r *memoryRepo) CountGLsByGroup(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	for _, gl := range r.gls {
		if gl.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) CountMoeinsByGL(ctx context.Context, glID int64) (int64, error) {
	var n int64
	for _, m := range r.moeins {
		if m.GLID == glID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) CountEntriesByMoein(ctx context.Context, moeinID int64) (int64, error) {
	return r.entriesByMoein[moeinID], nil
}

func (r *memoryRepo) CountEntriesByTafsili(ctx context.Context, tafsiliID int64) (int64, error) {
	return r.entriesByTafsili[tafsiliID], nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, nil), repo
}

func TestCreateGroupRequiresTitleAndCode(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateGroup(context.Background(), Group{Code: "1"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateGroup(context.Background(), Group{Title: "Assets"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateGLRequiresExistingGroup(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateGL(context.Background(), GeneralLedger{Code: "10", Title: "Cash", GroupID: 99})
	require.ErrorIs(t, err, ErrInvalidParent)
}

func TestCreateTafsiliRejectsSystemTypes(t *testing.T) {
	svc, _ := newTestService()
	for _, typ := range []TafsiliType{TafsiliCustomer, TafsiliBankAccount, TafsiliCash} {
		_, err := svc.CreateTafsili(context.Background(), Tafsili{Code: "1001", Title: "x", Type: typ})
		require.ErrorIs(t, err, ErrForbiddenSystemType, "type %s", typ)
	}
	created, err := svc.CreateTafsili(context.Background(), Tafsili{Code: "1001", Title: "HQ", Type: TafsiliCostCenter})
	require.NoError(t, err)
	require.Equal(t, TafsiliCostCenter, created.Type)
}

func TestSystemOwnedTafsiliIsReadOnly(t *testing.T) {
	svc, repo := newTestService()
	// Seeded the way the customer subsystem would.
	cust, err := repo.InsertTafsili(context.Background(), Tafsili{Code: "1001", Title: "Acme", Type: TafsiliCustomer, IsActive: true})
	require.NoError(t, err)

	err = svc.UpdateTafsili(context.Background(), cust.ID, Tafsili{Code: "1001", Title: "renamed"})
	require.ErrorIs(t, err, ErrSystemOwned)
	err = svc.DeleteTafsili(context.Background(), cust.ID)
	require.ErrorIs(t, err, ErrSystemOwned)

	got, err := svc.GetTafsili(context.Background(), cust.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", got.Title)
}

func TestSelectableTafsiliTypesExcludeSystemOwned(t *testing.T) {
	for _, typ := range SelectableTafsiliTypes() {
		require.False(t, typ.IsSystemOwned())
	}
	require.Len(t, SelectableTafsiliTypes(), 4)
}

func TestDeleteGroupBlockedByGLs(t *testing.T) {
	svc, _ := newTestService()
	group, err := svc.CreateGroup(context.Background(), Group{Code: "1", Title: "Assets", Nature: NatureDebtor, Category: CategoryAsset})
	require.NoError(t, err)
	_, err = svc.CreateGL(context.Background(), GeneralLedger{Code: "10", Title: "Cash", GroupID: group.ID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteGroup(context.Background(), group.ID), ErrHasDependents)
}

func TestDeleteMoeinBlockedByEntries(t *testing.T) {
	svc, repo := newTestService()
	group, err := svc.CreateGroup(context.Background(), Group{Code: "1", Title: "Assets", Nature: NatureDebtor, Category: CategoryAsset})
	require.NoError(t, err)
	gl, err := svc.CreateGL(context.Background(), GeneralLedger{Code: "10", Title: "Cash", GroupID: group.ID})
	require.NoError(t, err)
	moein, err := svc.CreateMoein(context.Background(), Moein{Code: "1001", Title: "Petty cash", GLID: gl.ID})
	require.NoError(t, err)

	repo.entriesByMoein[moein.ID] = 2
	require.ErrorIs(t, svc.DeleteMoein(context.Background(), moein.ID), ErrHasDependents)

	repo.entriesByMoein[moein.ID] = 0
	require.NoError(t, svc.DeleteMoein(context.Background(), moein.ID))
	_, err = svc.GetMoein(context.Background(), moein.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateCodeSurfacesConflict(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateGroup(context.Background(), Group{Code: "1", Title: "Assets", Nature: NatureDebtor, Category: CategoryAsset})
	require.NoError(t, err)
	// A second create that raced to the same code loses on the unique index.
	_, err = svc.CreateGroup(context.Background(), Group{Code: "1", Title: "Liabilities", Nature: NatureCreditor, Category: CategoryLiability})
	require.ErrorIs(t, err, ErrDuplicateCode)
}
