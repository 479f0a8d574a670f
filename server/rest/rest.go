package rest

import (
	"github.com/go-chi/chi/v5"

	middlewares "github.com/mediahub-app/mediahub/server/middleware"
)

func ApplyRouter(args *ContainerArgs) func(chi.Router) {
	h := ProvideHandler(ProvideService(args), args.Policy)

	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/info", h.Info)
		r.Get("/download", h.Download)
		r.Get("/audio-tiers", h.AudioTiers)
		r.Get("/streams", h.Streams)
		r.Get("/streams/{id}", h.Stream)
		r.Get("/status", h.Status)
	}
}
