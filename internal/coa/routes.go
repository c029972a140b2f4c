package coa

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the account hierarchy endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/next-code", h.NextCode)
	r.Get("/tafsili-types", h.TafsiliTypes)

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.ListGroups)
		r.Post("/", h.CreateGroup)
		r.Get("/{id}", h.GetGroup)
		r.Put("/{id}", h.UpdateGroup)
		r.Delete("/{id}", h.DeleteGroup)
	})
	r.Route("/gl", func(r chi.Router) {
		r.Get("/", h.ListGLs)
		r.Post("/", h.CreateGL)
		r.Get("/{id}", h.GetGL)
		r.Put("/{id}", h.UpdateGL)
		r.Delete("/{id}", h.DeleteGL)
	})
	r.Route("/moein", func(r chi.Router) {
		r.Get("/", h.ListMoeins)
		r.Post("/", h.CreateMoein)
		r.Get("/{id}", h.GetMoein)
		r.Put("/{id}", h.UpdateMoein)
		r.Delete("/{id}", h.DeleteMoein)
	})
	r.Route("/tafsili", func(r chi.Router) {
		r.Get("/", h.ListTafsilis)
		r.Post("/", h.CreateTafsili)
		r.Get("/{id}", h.GetTafsili)
		r.Put("/{id}", h.UpdateTafsili)
		r.Delete("/{id}", h.DeleteTafsili)
	})
}
