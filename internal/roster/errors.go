package roster

import "errors"

// Validation errors: rejected synchronously, never mutate state.
var ErrUnknownGame = errors.New("game not found")
var ErrUnknownLobby = errors.New("lobby not found")
var ErrUnknownPosition = errors.New("unknown position")
var ErrBadSchedule = errors.New("could not parse date/time")
var ErrBadStartWindow = errors.New("start window must be 1-120 minutes")

// Conflict errors: surfaced to the losing actor, no retry.
var ErrSlotTaken = errors.New("slot already filled")
var ErrAlreadyRostered = errors.New("already occupying a slot in this game")

// State guards.
var ErrRosterLocked = errors.New("roster is locked")
var ErrGameCanceled = errors.New("game is canceled")
var ErrLobbyCanceled = errors.New("lobby is canceled")
var ErrGamePast = errors.New("game is in the past")
var ErrNotAssigned = errors.New("not assigned to that slot")
var ErrNotAllowed = errors.New("only the creator or a manager can do that")
