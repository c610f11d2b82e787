package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seajay03/chel/internal/claims"
	"github.com/seajay03/chel/internal/hub"
	"github.com/seajay03/chel/internal/ws"
)

// SetupRoutes wires the admin command surface and the user-action endpoints.
// Authorization lives in front of this router; every handler trusts the
// identity fields on the request.
func SetupRoutes(api *API, h *hub.Hub, engine *claims.Engine) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, engine))

	r.Route("/games", func(r chi.Router) {
		r.Post("/", api.CreateGame)
		r.Get("/", api.ListGames)
		r.Get("/{id}", api.GetGame)
		r.Delete("/{id}", api.DeleteGame)
		r.Post("/{id}/reschedule", api.RescheduleGame)
		r.Post("/{id}/lock", api.SetLock)
		r.Post("/{id}/cancel", api.CancelGame)
		r.Post("/{id}/assign", api.AssignSlot)
		r.Post("/{id}/confirms", api.StartConfirms)
		r.Post("/{id}/broadcast", api.Broadcast)
		r.Post("/{id}/removal", api.EmergencyRemoval)
		r.Post("/{id}/claims", api.ClaimSlot)
	})

	r.Post("/claims/{token}/confirm", api.ConfirmClaim)
	r.Post("/affirm", api.Affirm)
	r.Post("/captain", api.SetCaptain)
	r.Post("/scheduler/pass", api.ForcePass)

	r.Route("/practices", func(r chi.Router) {
		r.Post("/", api.CreatePractice)
		r.Get("/", api.ListPractices)
		r.Post("/{id}/claim", api.PracticeClaim)
		r.Post("/{id}/leave", api.PracticeLeave)
		r.Post("/{id}/start", api.PracticeSetStart)
		r.Post("/{id}/announce", api.PracticeAnnounce)
		r.Post("/{id}/cancel", api.PracticeCancel)
	})

	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
