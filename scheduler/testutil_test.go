package scheduler

import (
	"errors"
	"sync"
	"time"

	"modbot/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memStore struct {
	mu         sync.Mutex
	actions    map[model.ActionKey]model.ScheduledAction
	failInsert bool
	failDelete bool
}

func newMemStore() *memStore {
	return &memStore{actions: make(map[model.ActionKey]model.ScheduledAction)}
}

func (s *memStore) Insert(action model.ScheduledAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return errors.New("store unavailable")
	}
	s.actions[action.Key] = action
	return nil
}

func (s *memStore) Delete(key model.ActionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errors.New("store unavailable")
	}
	delete(s.actions, key)
	return nil
}

func (s *memStore) ListAll() ([]model.ScheduledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScheduledAction, 0, len(s.actions))
	for _, a := range s.actions {
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) ListByKind(kind model.ActionKind) ([]model.ScheduledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ScheduledAction
	for _, a := range s.actions {
		if a.Key.Kind == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) get(key model.ActionKey) (model.ScheduledAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[key]
	return a, ok
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// stubGateway replies with scripted outcomes per key, falling back to
// success once the script runs out. A non-nil gate blocks every call until
// the gate is closed.
type stubGateway struct {
	mu      sync.Mutex
	scripts map[model.ActionKey][]Outcome
	calls   map[model.ActionKey]int
	gate    chan struct{}
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		scripts: make(map[model.ActionKey][]Outcome),
		calls:   make(map[model.ActionKey]int),
	}
}

func (g *stubGateway) script(key model.ActionKey, outcomes ...Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[key] = append(g.scripts[key], outcomes...)
}

func (g *stubGateway) callCount(key model.ActionKey) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

func (g *stubGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func (g *stubGateway) respond(key model.ActionKey) Result {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[key]++
	script := g.scripts[key]
	if len(script) == 0 {
		return Result{Outcome: OutcomeSuccess}
	}
	outcome := script[0]
	g.scripts[key] = script[1:]
	res := Result{Outcome: outcome}
	if outcome != OutcomeSuccess && outcome != OutcomeNotFound {
		res.Err = errors.New("scripted failure")
	}
	return res
}

func (g *stubGateway) RemoveMute(guildID, userID uint64) Result {
	return g.respond(model.ActionKey{GuildID: guildID, UserID: userID, Kind: model.ActionUnmute})
}

func (g *stubGateway) RemoveBan(guildID, userID uint64) Result {
	return g.respond(model.ActionKey{GuildID: guildID, UserID: userID, Kind: model.ActionUnban})
}

func (g *stubGateway) RemoveRole(guildID, userID, roleID uint64) Result {
	return g.respond(model.ActionKey{GuildID: guildID, UserID: userID, Kind: model.ActionRemoveRole, RoleID: roleID})
}

func muteKey(guildID, userID uint64) model.ActionKey {
	return model.ActionKey{GuildID: guildID, UserID: userID, Kind: model.ActionUnmute}
}

func pendingAt(key model.ActionKey, at time.Time) model.ScheduledAction {
	return model.ScheduledAction{Key: key, ExecuteAt: at, Status: model.StatusPending}
}
