package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	actx "go.hackfix.me/forage/app/context"
)

// Handler is the API endpoint handler.
type Handler struct {
	appCtx *actx.Context
}

// Router returns the API router.
func Router(appCtx *actx.Context) chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	// Limit request sizes to 10MB
	r.Use(middleware.RequestSize(10 << (10 * 2)))

	h := Handler{appCtx}
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ItemsList)
		r.Delete("/", h.ItemsClear)
		r.Get("/*", h.ItemGet)
		r.Put("/*", h.ItemSet)
		r.Delete("/*", h.ItemRemove)
	})
	r.Get("/keys", h.Keys)
	r.Get("/length", h.Length)

	return r
}
