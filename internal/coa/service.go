package coa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daftar-erp/daftar/internal/shared"
)

// AuditPort records account mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the account lifecycle manager for all four hierarchy levels.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// NextCode computes the next code for a level from the current store contents.
// It is a pure query: the result is never cached, and edits to existing
// records must not call it (edit mode keeps the original code).
func (s *Service) NextCode(ctx context.Context, level Level, scope CodeScope) (string, error) {
	spec, ok := level.spec()
	if !ok {
		return "", ErrInvalidScope
	}
	switch level {
	case LevelGL:
		if _, err := s.repo.GetGroup(ctx, scope.ParentID); err != nil {
			return "", scopeErr(err)
		}
	case LevelMoein:
		if _, err := s.repo.GetGL(ctx, scope.ParentID); err != nil {
			return "", scopeErr(err)
		}
	case LevelTafsili:
		if !scope.TafsiliType.valid() || scope.TafsiliType.IsSystemOwned() {
			return "", ErrInvalidScope
		}
	}
	max, err := s.repo.MaxCode(ctx, level, scope)
	if err != nil {
		return "", err
	}
	return spec.nextAfter(max), nil
}

func scopeErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidScope
	}
	return err
}

func validateTitleCode(title, code string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(code) == "" {
		return ErrValidation
	}
	return nil
}

func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

func (s *Service) GetGroup(ctx context.Context, id int64) (Group, error) {
	return s.repo.GetGroup(ctx, id)
}

func (s *Service) CreateGroup(ctx context.Context, g Group) (Group, error) {
	if err := validateTitleCode(g.Title, g.Code); err != nil {
		return Group{}, err
	}
	created, err := s.repo.InsertGroup(ctx, g)
	if err != nil {
		return Group{}, err
	}
	s.record(ctx, "coa.group.create", "account_group", created.ID, created.Code)
	return created, nil
}

func (s *Service) UpdateGroup(ctx context.Context, id int64, g Group) error {
	if err := validateTitleCode(g.Title, g.Code); err != nil {
		return err
	}
	if err := s.repo.UpdateGroup(ctx, id, g); err != nil {
		return err
	}
	s.record(ctx, "coa.group.update", "account_group", id, g.Code)
	return nil
}

func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountGLsByGroup(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "coa.group.delete", "account_group", id, g.Code)
	return nil
}

// ListGLs returns general ledger accounts, optionally filtered by group.
func (s *Service) ListGLs(ctx context.Context, groupID int64) ([]GeneralLedger, error) {
	return s.repo.ListGLs(ctx, groupID)
}

func (s *Service) GetGL(ctx context.Context, id int64) (GeneralLedger, error) {
	return s.repo.GetGL(ctx, id)
}

func (s *Service) CreateGL(ctx context.Context, gl GeneralLedger) (GeneralLedger, error) {
	if err := validateTitleCode(gl.Title, gl.Code); err != nil {
		return GeneralLedger{}, err
	}
	if _, err := s.repo.GetGroup(ctx, gl.GroupID); err != nil {
		return GeneralLedger{}, parentErr(err)
	}
	created, err := s.repo.InsertGL(ctx, gl)
	if err != nil {
		return GeneralLedger{}, err
	}
	s.record(ctx, "coa.gl.create", "general_ledger", created.ID, created.Code)
	return created, nil
}

func (s *Service) UpdateGL(ctx context.Context, id int64, gl GeneralLedger) error {
	if err := validateTitleCode(gl.Title, gl.Code); err != nil {
		return err
	}
	if _, err := s.repo.GetGroup(ctx, gl.GroupID); err != nil {
		return parentErr(err)
	}
	if err := s.repo.UpdateGL(ctx, id, gl); err != nil {
		return err
	}
	s.record(ctx, "coa.gl.update", "general_ledger", id, gl.Code)
	return nil
}

func (s *Service) DeleteGL(ctx context.Context, id int64) error {
	gl, err := s.repo.GetGL(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountMoeinsByGL(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	if err := s.repo.DeleteGL(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "coa.gl.delete", "general_ledger", id, gl.Code)
	return nil
}

// ListMoeins returns subsidiary accounts, optionally filtered by GL.
func (s *Service) ListMoeins(ctx context.Context, glID int64) ([]Moein, error) {
	return s.repo.ListMoeins(ctx, glID)
}

func (s *Service) GetMoein(ctx context.Context, id int64) (Moein, error) {
	return s.repo.GetMoein(ctx, id)
}

func (s *Service) CreateMoein(ctx context.Context, m Moein) (Moein, error) {
	if err := validateTitleCode(m.Title, m.Code); err != nil {
		return Moein{}, err
	}
	if _, err := s.repo.GetGL(ctx, m.GLID); err != nil {
		return Moein{}, parentErr(err)
	}
	created, err := s.repo.InsertMoein(ctx, m)
	if err != nil {
		return Moein{}, err
	}
	s.record(ctx, "coa.moein.create", "moein_account", created.ID, created.Code)
	return created, nil
}

func (s *Service) UpdateMoein(ctx context.Context, id int64, m Moein) error {
	if err := validateTitleCode(m.Title, m.Code); err != nil {
		return err
	}
	if _, err := s.repo.GetGL(ctx, m.GLID); err != nil {
		return parentErr(err)
	}
	if err := s.repo.UpdateMoein(ctx, id, m); err != nil {
		return err
	}
	s.record(ctx, "coa.moein.update", "moein_account", id, m.Code)
	return nil
}

func (s *Service) DeleteMoein(ctx context.Context, id int64) error {
	m, err := s.repo.GetMoein(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountEntriesByMoein(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	if err := s.repo.DeleteMoein(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "coa.moein.delete", "moein_account", id, m.Code)
	return nil
}

// ListTafsilis returns floating detail accounts, optionally filtered by type.
func (s *Service) ListTafsilis(ctx context.Context, typ TafsiliType) ([]Tafsili, error) {
	return s.repo.ListTafsilis(ctx, typ)
}

func (s *Service) GetTafsili(ctx context.Context, id int64) (Tafsili, error) {
	return s.repo.GetTafsili(ctx, id)
}

// CreateTafsili inserts an operator-managed detail account. The customer,
// bank-account and cash types are created only by their owning subsystems.
func (s *Service) CreateTafsili(ctx context.Context, t Tafsili) (Tafsili, error) {
	if err := validateTitleCode(t.Title, t.Code); err != nil {
		return Tafsili{}, err
	}
	if !t.Type.valid() {
		return Tafsili{}, ErrInvalidScope
	}
	if t.Type.IsSystemOwned() {
		return Tafsili{}, ErrForbiddenSystemType
	}
	created, err := s.repo.InsertTafsili(ctx, t)
	if err != nil {
		return Tafsili{}, err
	}
	s.record(ctx, "coa.tafsili.create", "tafsili_account", created.ID, created.Code)
	return created, nil
}

func (s *Service) UpdateTafsili(ctx context.Context, id int64, t Tafsili) error {
	if err := validateTitleCode(t.Title, t.Code); err != nil {
		return err
	}
	current, err := s.repo.GetTafsili(ctx, id)
	if err != nil {
		return err
	}
	// The resolved type decides ownership; the request cannot reclassify a
	// system-owned record to slip past the guard.
	if current.Type.IsSystemOwned() {
		return ErrSystemOwned
	}
	if err := s.repo.UpdateTafsili(ctx, id, t); err != nil {
		return err
	}
	s.record(ctx, "coa.tafsili.update", "tafsili_account", id, t.Code)
	return nil
}

func (s *Service) DeleteTafsili(ctx context.Context, id int64) error {
	current, err := s.repo.GetTafsili(ctx, id)
	if err != nil {
		return err
	}
	if current.Type.IsSystemOwned() {
		return ErrSystemOwned
	}
	n, err := s.repo.CountEntriesByTafsili(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasDependents
	}
	if err := s.repo.DeleteTafsili(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "coa.tafsili.delete", "tafsili_account", id, current.Code)
	return nil
}

func parentErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidParent
	}
	return err
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, code string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"code": code},
		At:       s.now(),
	})
}
