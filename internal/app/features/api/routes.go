// internal/app/features/api/routes.go
package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the JSON API. The identity-resolution middleware runs in
// the outer router; per-handler gates do the rest, so anonymous requests
// reach handlers and public reads work without a token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/users/{userID}", func(ur chi.Router) {
		ur.Get("/", h.ServeUser)
		ur.Patch("/", h.HandleUserUpdate)
	})

	r.Route("/badges/{badgeID}", func(br chi.Router) {
		br.Get("/", h.ServeBadge)
		br.Patch("/", h.HandleBadgeUpdate)
		br.Post("/logs", h.HandleStartLog)
	})

	r.Route("/logs/{logID}", func(lr chi.Router) {
		lr.Get("/", h.ServeLog)
		lr.Post("/request_validation", h.HandleRequestValidation)
		lr.Post("/withdraw", h.HandleWithdraw)
		lr.Post("/posts", h.HandleAddPost)
		lr.Post("/validations", h.HandleAddValidation)
	})

	r.Route("/apps/{appID}/memberships", func(mr chi.Router) {
		mr.Post("/users/{userID}", h.HandleUserJoin)
		mr.Patch("/users/{userID}", h.HandleUserApproval)
		mr.Delete("/users/{userID}", h.HandleUserLeave)
		mr.Post("/groups/{groupID}", h.HandleGroupJoin)
		mr.Patch("/groups/{groupID}", h.HandleGroupApproval)
	})

	return r
}
