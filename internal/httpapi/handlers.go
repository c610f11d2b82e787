package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/claims"
	"github.com/seajay03/chel/internal/lifecycle"
	"github.com/seajay03/chel/internal/practice"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/scheduler"
	"github.com/seajay03/chel/internal/store"
)

type API struct {
	Machine  *lifecycle.Machine
	Claims   *claims.Engine
	Practice *practice.Engine
	Sched    *scheduler.Scheduler
	Store    *store.Store
	Loc      *time.Location
	Log      *zap.Logger
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto status codes: validation 400/404,
// conflicts 409, authorization 403, persistence 500.
func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, roster.ErrUnknownGame),
		errors.Is(err, roster.ErrUnknownLobby),
		errors.Is(err, claims.ErrUnknownClaim):
		code = http.StatusNotFound
	case errors.Is(err, roster.ErrUnknownPosition),
		errors.Is(err, roster.ErrBadSchedule),
		errors.Is(err, roster.ErrBadStartWindow):
		code = http.StatusBadRequest
	case errors.Is(err, roster.ErrSlotTaken),
		errors.Is(err, roster.ErrAlreadyRostered),
		errors.Is(err, roster.ErrRosterLocked),
		errors.Is(err, roster.ErrGameCanceled),
		errors.Is(err, roster.ErrLobbyCanceled),
		errors.Is(err, roster.ErrGamePast),
		errors.Is(err, roster.ErrNotAssigned),
		errors.Is(err, claims.ErrNothingToConfirm):
		code = http.StatusConflict
	case errors.Is(err, claims.ErrClaimExpired):
		code = http.StatusGone
	case errors.Is(err, roster.ErrNotAllowed),
		errors.Is(err, claims.ErrWrongClaimant):
		code = http.StatusForbidden
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (a *API) parseWhen(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02 3:04PM"} {
		if t, err := time.ParseInLocation(layout, raw, a.Loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, roster.ErrBadSchedule
}

func (a *API) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduledAt string `json:"scheduled_at"`
		Opponent    string `json:"opponent"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, roster.ErrBadSchedule)
		return
	}
	at, err := a.parseWhen(req.ScheduledAt)
	if err != nil {
		writeErr(w, err)
		return
	}
	g, err := a.Machine.CreateGame(r.Context(), at, req.Opponent)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (a *API) ListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Games())
}

func (a *API) GetGame(w http.ResponseWriter, r *http.Request) {
	g, err := a.Store.GetGame(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := a.Machine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) RescheduleGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduledAt string `json:"scheduled_at"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, roster.ErrBadSchedule)
		return
	}
	at, err := a.parseWhen(req.ScheduledAt)
	if err != nil {
		writeErr(w, err)
		return
	}
	newID, err := a.Machine.Reschedule(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": newID})
}

func (a *API) SetLock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Machine.SetLock(r.Context(), chi.URLParam(r, "id"), req.Locked); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) CancelGame(w http.ResponseWriter, r *http.Request) {
	if err := a.Machine.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) AssignSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position string `json:"position"`
		UserID   string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	pos, ok := roster.ParsePosition(req.Position)
	if !ok {
		writeErr(w, roster.ErrUnknownPosition)
		return
	}
	if err := a.Machine.AssignSlot(r.Context(), chi.URLParam(r, "id"), pos, req.UserID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) StartConfirms(w http.ResponseWriter, r *http.Request) {
	if err := a.Machine.StartConfirms(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Machine.Broadcast(r.Context(), chi.URLParam(r, "id"), req.Text); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) EmergencyRemoval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position string `json:"position"`
		UserID   string `json:"user_id"`
		Reason   string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	pos, ok := roster.ParsePosition(req.Position)
	if !ok {
		writeErr(w, roster.ErrUnknownPosition)
		return
	}
	if err := a.Machine.EmergencyRemoval(r.Context(), chi.URLParam(r, "id"), pos, req.UserID, req.Reason); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ClaimSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position string `json:"position"`
		UserID   string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	pos, ok := roster.ParsePosition(req.Position)
	if !ok {
		writeErr(w, roster.ErrUnknownPosition)
		return
	}
	token, err := a.Claims.Claim(r.Context(), chi.URLParam(r, "id"), pos, req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"token": token})
}

func (a *API) ConfirmClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	gameID, pos, err := a.Claims.Confirm(r.Context(), chi.URLParam(r, "token"), req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"game_id": gameID, "position": string(pos)})
}

func (a *API) Affirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	gameID, pos, err := a.Claims.DirectAffirm(r.Context(), req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"game_id": gameID, "position": string(pos)})
}

func (a *API) SetCaptain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Store.SetCaptain(req.UserID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ForcePass(w http.ResponseWriter, r *http.Request) {
	a.Sched.Pass(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) CreatePractice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatorID      string `json:"creator_id"`
		Opponent       string `json:"opponent"`
		StartInMinutes int    `json:"start_in_minutes"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	l, err := a.Practice.Create(r.Context(), req.CreatorID, req.Opponent, req.StartInMinutes)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (a *API) ListPractices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.Practices())
}

func (a *API) PracticeClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position string `json:"position"`
		UserID   string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	pos, ok := roster.ParsePosition(req.Position)
	if !ok {
		writeErr(w, roster.ErrUnknownPosition)
		return
	}
	if err := a.Practice.ClaimSlot(r.Context(), chi.URLParam(r, "id"), pos, req.UserID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) PracticeLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Practice.LeaveSlot(r.Context(), chi.URLParam(r, "id"), req.UserID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) PracticeSetStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string `json:"actor_id"`
		Manager bool   `json:"manager"`
		Minutes int    `json:"minutes"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Practice.SetStartMinutes(r.Context(), chi.URLParam(r, "id"), req.ActorID, req.Manager, req.Minutes); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) PracticeAnnounce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string `json:"actor_id"`
		Manager bool   `json:"manager"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Practice.Announce(r.Context(), chi.URLParam(r, "id"), req.ActorID, req.Manager); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) PracticeCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string `json:"actor_id"`
		Manager bool   `json:"manager"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.Practice.Cancel(r.Context(), chi.URLParam(r, "id"), req.ActorID, req.Manager); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
