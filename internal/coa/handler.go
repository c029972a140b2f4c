package coa

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/daftar-erp/daftar/internal/platform/httpx"
)

// Handler exposes the account hierarchy endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type groupRequest struct {
	Code     string `json:"code" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Nature   string `json:"nature" validate:"required,oneof=DEBTOR CREDITOR DUAL"`
	Category string `json:"category" validate:"required,oneof=ASSET LIABILITY REVENUE EXPENSE EQUITY"`
}

type glRequest struct {
	Code    string `json:"code" validate:"required"`
	Title   string `json:"title" validate:"required"`
	GroupID int64  `json:"group_id" validate:"required"`
}

type moeinRequest struct {
	Code  string `json:"code" validate:"required"`
	Title string `json:"title" validate:"required"`
	GLID  int64  `json:"gl_id" validate:"required"`
}

type tafsiliRequest struct {
	Code     string `json:"code" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Type     string `json:"tafsili_type" validate:"required"`
	IsActive *bool  `json:"is_active"`
}

// NextCode serves code generation for the create forms. Edit forms keep the
// original code and never call this.
func (h *Handler) NextCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := Level(q.Get("level"))
	var scope CodeScope
	if v := q.Get("parent_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Scope", "parent_id must be numeric")
			return
		}
		scope.ParentID = id
	}
	if v := q.Get("tafsili_type"); v != "" {
		scope.TafsiliType = TafsiliType(v)
	}
	code, err := h.service.NextCode(r.Context(), level, scope)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": code})
}

// TafsiliTypes lists the types selectable when creating a detail account.
func (h *Handler) TafsiliTypes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, SelectableTafsiliTypes())
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (any, error) { return h.service.GetGroup(ctx, id) })
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateGroup(r.Context(), Group{
		Code: req.Code, Title: req.Title, Nature: Nature(req.Nature), Category: Category(req.Category),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req groupRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.UpdateGroup(r.Context(), id, Group{
		Code: req.Code, Title: req.Title, Nature: Nature(req.Nature), Category: Category(req.Category),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteGroup)
}

func (h *Handler) ListGLs(w http.ResponseWriter, r *http.Request) {
	groupID, _ := strconv.ParseInt(r.URL.Query().Get("group_id"), 10, 64)
	gls, err := h.service.ListGLs(r.Context(), groupID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gls)
}

func (h *Handler) GetGL(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (any, error) { return h.service.GetGL(ctx, id) })
}

func (h *Handler) CreateGL(w http.ResponseWriter, r *http.Request) {
	var req glRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateGL(r.Context(), GeneralLedger{
		Code: req.Code, Title: req.Title, GroupID: req.GroupID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateGL(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req glRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.UpdateGL(r.Context(), id, GeneralLedger{
		Code: req.Code, Title: req.Title, GroupID: req.GroupID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteGL(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteGL)
}

func (h *Handler) ListMoeins(w http.ResponseWriter, r *http.Request) {
	glID, _ := strconv.ParseInt(r.URL.Query().Get("gl_id"), 10, 64)
	moeins, err := h.service.ListMoeins(r.Context(), glID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, moeins)
}

func (h *Handler) GetMoein(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (any, error) { return h.service.GetMoein(ctx, id) })
}

func (h *Handler) CreateMoein(w http.ResponseWriter, r *http.Request) {
	var req moeinRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.CreateMoein(r.Context(), Moein{
		Code: req.Code, Title: req.Title, GLID: req.GLID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateMoein(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req moeinRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.UpdateMoein(r.Context(), id, Moein{
		Code: req.Code, Title: req.Title, GLID: req.GLID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteMoein(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteMoein)
}

func (h *Handler) ListTafsilis(w http.ResponseWriter, r *http.Request) {
	typ := TafsiliType(r.URL.Query().Get("type"))
	tafsilis, err := h.service.ListTafsilis(r.Context(), typ)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tafsilis)
}

func (h *Handler) GetTafsili(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, func(ctx context.Context, id int64) (any, error) { return h.service.GetTafsili(ctx, id) })
}

func (h *Handler) CreateTafsili(w http.ResponseWriter, r *http.Request) {
	var req tafsiliRequest
	if !h.decode(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := h.service.CreateTafsili(r.Context(), Tafsili{
		Code: req.Code, Title: req.Title, Type: TafsiliType(req.Type), IsActive: active,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateTafsili(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req tafsiliRequest
	if !h.decode(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	err := h.service.UpdateTafsili(r.Context(), id, Tafsili{
		Code: req.Code, Title: req.Title, IsActive: active,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteTafsili(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, h.service.DeleteTafsili)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (any, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidParent), errors.Is(err, ErrInvalidScope):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Account", err.Error())
	case errors.Is(err, ErrForbiddenSystemType), errors.Is(err, ErrSystemOwned):
		httpx.Problem(w, http.StatusForbidden, "System Owned", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate Code", err.Error())
	case errors.Is(err, ErrHasDependents):
		httpx.Problem(w, http.StatusConflict, "Has Dependents", err.Error())
	default:
		h.logger.Error("coa handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
