// Package store owns every Game and PracticeLobby record. All mutation goes
// through a per-entity critical section: the caller's closure runs against a
// deep copy which is installed and written through to disk before anyone else
// can observe it. A failed write-through (after one retry) rolls the copy
// back, so in-memory state never gets ahead of the durable snapshot.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/roster"
)

// ErrPersistence wraps a write-through failure that survived the retry.
var ErrPersistence = errors.New("persistence failure")

// Snapshot is the persisted layout: one document holding everything.
type Snapshot struct {
	Games     []*roster.Game          `json:"games"`
	Practices []*roster.PracticeLobby `json:"practices"`
	CaptainID string                  `json:"captain_id"`
}

type gameEntry struct {
	mu   sync.Mutex
	game *roster.Game // never mutated in place; replaced on commit under s.mu
}

type lobbyEntry struct {
	mu    sync.Mutex
	lobby *roster.PracticeLobby
}

// Lock order: entity mu, then saveMu, then s.mu. Committed entry pointers
// are published under s.mu so snapshot() can read them with s.mu alone;
// nobody takes an entity mu while holding s.mu.
type Store struct {
	path string
	log  *zap.Logger

	mu        sync.RWMutex // guards the maps, captainID, and entry pointer publication
	games     map[string]*gameEntry
	practices map[string]*lobbyEntry
	captainID string

	saveMu   sync.Mutex // serializes file writes
	version  int
	onCommit func(version int)
}

// Open loads the snapshot at path, or starts empty if the file is missing.
func Open(path string, log *zap.Logger) (*Store, error) {
	s := &Store{
		path:      path,
		log:       log,
		games:     map[string]*gameEntry{},
		practices: map[string]*lobbyEntry{},
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode storage: %w", err)
	}
	for _, g := range snap.Games {
		s.games[g.ID] = &gameEntry{game: g}
	}
	for _, l := range snap.Practices {
		s.practices[l.ID] = &lobbyEntry{lobby: l}
	}
	s.captainID = snap.CaptainID
	log.Info("storage loaded",
		zap.Int("games", len(snap.Games)),
		zap.Int("practices", len(snap.Practices)))
	return s, nil
}

// OnCommit registers a hook invoked after every durable commit. Used by the
// snapshot hub; must not block.
func (s *Store) OnCommit(fn func(version int)) {
	s.onCommit = fn
}

func (s *Store) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Games:     make([]*roster.Game, 0, len(s.games)),
		Practices: make([]*roster.PracticeLobby, 0, len(s.practices)),
		CaptainID: s.captainID,
	}
	for _, e := range s.games {
		snap.Games = append(snap.Games, e.game)
	}
	for _, e := range s.practices {
		snap.Practices = append(snap.Practices, e.lobby)
	}
	sort.Slice(snap.Games, func(i, j int) bool { return snap.Games[i].ID < snap.Games[j].ID })
	sort.Slice(snap.Practices, func(i, j int) bool { return snap.Practices[i].ID < snap.Practices[j].ID })
	return snap
}

// View returns the current state for read-only consumers (ws snapshots).
func (s *Store) View() Snapshot {
	snap := s.snapshot()
	for i, g := range snap.Games {
		snap.Games[i] = g.Clone()
	}
	for i, l := range snap.Practices {
		snap.Practices[i] = l.Clone()
	}
	return snap
}

func (s *Store) persist() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	raw, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.log.Warn("storage write failed, retrying once", zap.Error(err))
		if err = os.WriteFile(s.path, raw, 0o644); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	return nil
}

func (s *Store) committed() {
	s.saveMu.Lock()
	s.version++
	v := s.version
	s.saveMu.Unlock()
	if s.onCommit != nil {
		s.onCommit(v)
	}
}

// Flush writes the snapshot out unconditionally. Called at shutdown.
func (s *Store) Flush() error {
	return s.persist()
}

// AddGame registers a new game and persists it.
func (s *Store) AddGame(g *roster.Game) error {
	s.mu.Lock()
	if _, ok := s.games[g.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("game %s: already exists", g.ID)
	}
	e := &gameEntry{game: g}
	s.games[g.ID] = e
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		delete(s.games, g.ID)
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}

// DeleteGame removes a game entirely. Canceled games are normally kept for
// history; delete is the operator's hard remove.
func (s *Store) DeleteGame(id string) error {
	s.mu.Lock()
	e, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return roster.ErrUnknownGame
	}
	delete(s.games, id)
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		s.games[id] = e
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}

// GetGame returns a copy of the game, safe to read without coordination.
func (s *Store) GetGame(id string) (*roster.Game, error) {
	s.mu.RLock()
	e, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, roster.ErrUnknownGame
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.Clone(), nil
}

// GameIDs lists all game ids in chronological order.
func (s *Store) GameIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Games returns copies of every game, chronological.
func (s *Store) Games() []*roster.Game {
	var out []*roster.Game
	for _, id := range s.GameIDs() {
		if g, err := s.GetGame(id); err == nil {
			out = append(out, g)
		}
	}
	return out
}

// UpdateGame runs fn inside the game's critical section. fn receives a deep
// copy; returning an error discards it untouched. The copy becomes visible
// only once the write-through succeeds.
func (s *Store) UpdateGame(id string, fn func(g *roster.Game) error) error {
	s.mu.RLock()
	e, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return roster.ErrUnknownGame
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.game.Clone()
	if err := fn(cp); err != nil {
		return err
	}
	prev := e.game
	s.mu.Lock()
	e.game = cp
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		e.game = prev
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}

// RescheduleGame moves a game to a new time, which rewrites its identity and
// resets every fired anchor. Manual flags (locked, canceled) survive. The
// map re-key happens in a short s.mu window; the write-through runs without
// s.mu held, same as every other mutator.
func (s *Store) RescheduleGame(id string, fn func(g *roster.Game) error) error {
	s.mu.RLock()
	e, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return roster.ErrUnknownGame
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.game.Clone()
	if err := fn(cp); err != nil {
		return err
	}
	prev := e.game
	s.mu.Lock()
	if s.games[id] != e {
		s.mu.Unlock()
		return roster.ErrUnknownGame // deleted while we prepared the move
	}
	if cp.ID != id {
		if _, clash := s.games[cp.ID]; clash {
			s.mu.Unlock()
			return fmt.Errorf("game %s: already exists", cp.ID)
		}
		delete(s.games, id)
		s.games[cp.ID] = e
	}
	e.game = cp
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		e.game = prev
		if cp.ID != id {
			delete(s.games, cp.ID)
			s.games[id] = e
		}
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}

// AddPractice registers a new lobby and persists it.
func (s *Store) AddPractice(l *roster.PracticeLobby) error {
	s.mu.Lock()
	if _, ok := s.practices[l.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("lobby %s: already exists", l.ID)
	}
	s.practices[l.ID] = &lobbyEntry{lobby: l}
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		delete(s.practices, l.ID)
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}

// GetPractice returns a copy of the lobby.
func (s *Store) GetPractice(id string) (*roster.PracticeLobby, error) {
	s.mu.RLock()
	e, ok := s.practices[id]
	s.mu.RUnlock()
	if !ok {
		return nil, roster.ErrUnknownLobby
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lobby.Clone(), nil
}

// Practices returns copies of every lobby, ordered by id.
func (s *Store) Practices() []*roster.PracticeLobby {
	s.mu.RLock()
	ids := make([]string, 0, len(s.practices))
	for id := range s.practices {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	var out []*roster.PracticeLobby
	for _, id := range ids {
		if l, err := s.GetPractice(id); err == nil {
			out = append(out, l)
		}
	}
	return out
}

// UpdatePractice runs fn inside the lobby's critical section, same contract
// as UpdateGame.
func (s *Store) UpdatePractice(id string, fn func(l *roster.PracticeLobby) error) error {
	s.mu.RLock()
	e, ok := s.practices[id]
	s.mu.RUnlock()
	if !ok {
		return roster.ErrUnknownLobby
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.lobby.Clone()
	if err := fn(cp); err != nil {
		return err
	}
	prev := e.lobby
	s.mu.Lock()
	e.lobby = cp
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		e.lobby = prev
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}

// CaptainID returns the configured coordinator identity, if any.
func (s *Store) CaptainID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.captainID
}

// SetCaptain records the coordinator identity.
func (s *Store) SetCaptain(userID string) error {
	s.mu.Lock()
	prev := s.captainID
	s.captainID = userID
	s.mu.Unlock()
	if err := s.persist(); err != nil {
		s.mu.Lock()
		s.captainID = prev
		s.mu.Unlock()
		return err
	}
	s.committed()
	return nil
}
