package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/daftar-erp/daftar/internal/platform/httpx"
	"github.com/daftar-erp/daftar/internal/shared"
)

// Handler exposes the ledger document endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
	listGroup   singleflight.Group
}

func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		validate:    validator.New(),
	}
}

type entryRequest struct {
	MoeinID     int64  `json:"moein_id" validate:"required"`
	TafsiliID   *int64 `json:"tafsili_id"`
	Description string `json:"description"`
	Bed         string `json:"bed"`
	Bes         string `json:"bes"`
}

type documentRequest struct {
	DocDate     string         `json:"doc_date" validate:"required"`
	ManualNo    string         `json:"manual_no"`
	Description string         `json:"description"`
	Entries     []entryRequest `json:"entries" validate:"required,min=1,dive"`
}

func (req documentRequest) toInput() (DocumentInput, error) {
	date, err := time.Parse("2006-01-02", req.DocDate)
	if err != nil {
		return DocumentInput{}, ErrDateRequired
	}
	in := DocumentInput{
		DocDate:     date,
		ManualNo:    req.ManualNo,
		Description: req.Description,
	}
	for _, e := range req.Entries {
		bed, err := parseAmount(e.Bed)
		if err != nil {
			return DocumentInput{}, err
		}
		bes, err := parseAmount(e.Bes)
		if err != nil {
			return DocumentInput{}, err
		}
		in.Entries = append(in.Entries, EntryInput{
			MoeinID:     e.MoeinID,
			TafsiliID:   e.TafsiliID,
			Description: e.Description,
			Bed:         bed,
			Bes:         bes,
		})
	}
	return in, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
		return
	}
	// Identical concurrent list requests share one build.
	result, err, _ := h.listGroup.Do(filter.cacheKey(), func() (any, error) {
		docs, err := h.service.List(r.Context(), filter)
		if err != nil {
			return nil, err
		}
		return ToRows(docs), nil
	})
	if err != nil {
		h.logger.Error("list documents", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func filterFromQuery(r *http.Request) (Filter, error) {
	var filter Filter
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Filter{}, err
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Filter{}, err
		}
		filter.To = &t
	}
	if v := q.Get("type"); v != "" {
		filter.Type = DocType(v)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return Filter{}, err
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be numeric")
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.Consume(r.Context(), idemKey, "ledger.document.create"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
				return
			}
			h.logger.Error("idempotency consume", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}
	doc, err := h.service.CreateManualDocument(r.Context(), in)
	if err != nil {
		if idemKey != "" && h.idempotency != nil {
			_ = h.idempotency.Release(r.Context(), idemKey)
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be numeric")
		return
	}
	in, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	doc, err := h.service.UpdateManualDocument(r.Context(), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "document id must be numeric")
		return
	}
	if err := h.service.DeleteDocument(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeDocument(w http.ResponseWriter, r *http.Request) (DocumentInput, bool) {
	var req documentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return DocumentInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return DocumentInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		h.respondError(w, err)
		return DocumentInput{}, false
	}
	return in, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrSystemDocument):
		httpx.Problem(w, http.StatusForbidden, "System Document", err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrNoEntries), errors.Is(err, ErrDateRequired),
		errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrBothSides),
		errors.Is(err, ErrUnknownAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Document", err.Error())
	case errors.Is(err, ErrSourceAlreadyPosted):
		httpx.Problem(w, http.StatusConflict, "Already Posted", err.Error())
	default:
		h.logger.Error("ledger handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
