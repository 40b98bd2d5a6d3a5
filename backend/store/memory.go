package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sanskriti-setu/setu/backend/recommend"
)

// Memory keeps everything in process. It follows the same rules as Postgres
// and is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextUser int
	nextConn int
	nextMsg  int64

	users       map[int]*memUser
	byEmail     map[string]int
	profiles    map[int]recommend.Profile
	connections map[pairKey]*Connection
	messages    map[pairKey][]Message
}

type memUser struct {
	email      string
	hash       string
	lastOnline time.Time
}

// pairKey orders a pair so either direction finds the same entry.
type pairKey struct{ lo, hi int }

func keyOf(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		users:       make(map[int]*memUser),
		byEmail:     make(map[string]int),
		profiles:    make(map[int]recommend.Profile),
		connections: make(map[pairKey]*Connection),
		messages:    make(map[pairKey][]Message),
	}
}

// SetClock replaces the time source. For tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// CreateUser adds an account with an empty profile.
func (m *Memory) CreateUser(_ context.Context, u NewUser) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[u.Email]; taken {
		return 0, ErrEmailExists
	}
	m.nextUser++
	id := m.nextUser
	m.users[id] = &memUser{email: u.Email, hash: u.PasswordHash, lastOnline: m.now()}
	m.byEmail[u.Email] = id
	m.profiles[id] = recommend.Profile{UserID: id, Name: u.Name, Avatar: u.Avatar, Level: 1}
	return id, nil
}

// PutProfile stores p as is, creating a bare account for it when needed.
// For seeding and tests.
func (m *Memory) PutProfile(p recommend.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[p.UserID]; !ok {
		email := fmt.Sprintf("user%d@memory.local", p.UserID)
		m.users[p.UserID] = &memUser{email: email}
		m.byEmail[email] = p.UserID
	}
	if p.UserID > m.nextUser {
		m.nextUser = p.UserID
	}
	p.IsComplete = p.Complete()
	m.profiles[p.UserID] = p
}

func (m *Memory) userLocked(id int) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	p := m.profiles[id]
	return User{
		ID:           id,
		Email:        u.email,
		Name:         p.Name,
		Avatar:       p.Avatar,
		Points:       p.Points,
		Level:        p.Level,
		PasswordHash: u.hash,
		LastOnline:   u.lastOnline,
	}, nil
}

// UserByEmail looks up an account for login.
func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.userLocked(id)
}

// User looks up an account by id.
func (m *Memory) User(_ context.Context, id int) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userLocked(id)
}

// Touch marks the user as seen now.
func (m *Memory) Touch(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.lastOnline = m.now()
	}
	return nil
}

// Summaries returns the public cards of the given users keyed by id.
func (m *Memory) Summaries(_ context.Context, ids []int) (map[int]UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make(map[int]UserSummary, len(ids))
	for _, id := range ids {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		p := m.profiles[id]
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("User %d", id)
		}
		out[id] = UserSummary{
			ID:       id,
			Name:     name,
			Avatar:   p.Avatar,
			State:    p.State,
			City:     p.City,
			IsOnline: IsOnline(u.lastOnline, now),
		}
	}
	return out, nil
}

// CurrentProfile returns the profile owned by userID.
func (m *Memory) CurrentProfile(_ context.Context, userID int) (recommend.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return recommend.Profile{}, fmt.Errorf("user %d: %w", userID, recommend.ErrProfileNotFound)
	}
	return cloneProfile(p), nil
}

// CandidatePool returns up to limit profiles ordered by user id.
func (m *Memory) CandidatePool(_ context.Context, limit int) ([]recommend.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	pool := make([]recommend.Profile, 0, len(ids))
	for _, id := range ids {
		pool = append(pool, cloneProfile(m.profiles[id]))
	}
	return pool, nil
}

// UpdateProfile overwrites the editable fields of p.UserID's profile.
func (m *Memory) UpdateProfile(_ context.Context, p recommend.Profile) (recommend.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.profiles[p.UserID]
	if !ok {
		return recommend.Profile{}, fmt.Errorf("user %d: %w", p.UserID, recommend.ErrProfileNotFound)
	}
	p.Avatar = cur.Avatar
	p.Points = cur.Points
	p.Level = cur.Level
	p.IsComplete = p.Complete()
	p = cloneProfile(p)
	m.profiles[p.UserID] = p
	return cloneProfile(p), nil
}

func cloneProfile(p recommend.Profile) recommend.Profile {
	p.PrimaryLanguages = cloneTags(p.PrimaryLanguages)
	p.RegionalLanguages = cloneTags(p.RegionalLanguages)
	p.CulturalInterests = cloneTags(p.CulturalInterests)
	p.Skills = cloneTags(p.Skills)
	p.TeachingAbilities = cloneTags(p.TeachingAbilities)
	p.Hobbies = cloneTags(p.Hobbies)
	p.LearningGoals = cloneTags(p.LearningGoals)
	p.InterestedStates = cloneTags(p.InterestedStates)
	return p
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return slices.Clone(tags)
}

// Connect applies action by me towards peer.
func (m *Memory) Connect(_ context.Context, me, peer int, action Action) (Connection, error) {
	if me == peer {
		return Connection{}, ErrInvalidTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[peer]; !ok {
		return Connection{}, ErrNotFound
	}
	key := keyOf(me, peer)
	cur := m.connections[key]
	d, err := Decide(cur, me, action)
	if err != nil {
		return Connection{}, err
	}
	now := m.now()
	switch {
	case d.Create:
		m.nextConn++
		cur = &Connection{ID: m.nextConn, RequesterID: me, AddresseeID: peer, Status: d.Status, CreatedAt: now, UpdatedAt: now}
		m.connections[key] = cur
	case d.Changed:
		cur.Status = d.Status
		cur.UpdatedAt = now
	}
	return *cur, nil
}

// Pair returns the row between a and b, or ErrNotFound.
func (m *Memory) Pair(_ context.Context, a, b int) (Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connections[keyOf(a, b)]
	if !ok {
		return Connection{}, ErrNotFound
	}
	return *c, nil
}

// Connections returns the ids of users with an accepted connection to me,
// most recently changed first.
func (m *Memory) Connections(_ context.Context, me int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.rowsLocked(func(c *Connection) bool {
		return c.Status == StatusAccepted && (c.RequesterID == me || c.AddresseeID == me)
	}, func(c *Connection) time.Time { return c.UpdatedAt })
	ids := make([]int, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.Peer(me))
	}
	return ids, nil
}

// Requests returns pending requests to me and from me, newest first.
func (m *Memory) Requests(_ context.Context, me int) (incoming, outgoing []int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	created := func(c *Connection) time.Time { return c.CreatedAt }
	incoming = []int{}
	for _, c := range m.rowsLocked(func(c *Connection) bool {
		return c.Status == StatusPending && c.AddresseeID == me
	}, created) {
		incoming = append(incoming, c.RequesterID)
	}
	outgoing = []int{}
	for _, c := range m.rowsLocked(func(c *Connection) bool {
		return c.Status == StatusPending && c.RequesterID == me
	}, created) {
		outgoing = append(outgoing, c.AddresseeID)
	}
	return incoming, outgoing, nil
}

// rowsLocked filters connections and sorts them newest first by the given
// time, then by id descending.
func (m *Memory) rowsLocked(keep func(*Connection) bool, at func(*Connection) time.Time) []*Connection {
	var rows []*Connection
	for _, c := range m.connections {
		if keep(c) {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		ti, tj := at(rows[i]), at(rows[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows
}

// SaveMessage stores a message between two connected users.
func (m *Memory) SaveMessage(_ context.Context, from, to int, body string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := keyOf(from, to)
	c, ok := m.connections[key]
	if !ok || c.Status != StatusAccepted {
		return Message{}, ErrNoConnection
	}
	m.nextMsg++
	msg := Message{
		ID:        m.nextMsg,
		ChatID:    chatIDOf(key),
		From:      from,
		To:        to,
		Body:      body,
		CreatedAt: m.now(),
	}
	m.messages[key] = append(m.messages[key], msg)
	return msg, nil
}

// chatIDOf derives a stable chat id for a pair. Memory has no chats table.
func chatIDOf(k pairKey) int { return k.lo<<16 | k.hi }

// Messages returns up to limit messages between me and peer, newest first,
// and marks the peer's messages read.
func (m *Memory) Messages(_ context.Context, me, peer, limit int, before *time.Time) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[keyOf(me, peer)]
	out := make([]Message, 0, max(0, min(limit, len(all))))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if before != nil && !all[i].CreatedAt.Before(*before) {
			continue
		}
		out = append(out, all[i])
	}
	m.markReadLocked(me, peer)
	return out, nil
}

// MarkRead marks everything peer sent to me as read.
func (m *Memory) MarkRead(_ context.Context, me, peer int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markReadLocked(me, peer)
	return nil
}

func (m *Memory) markReadLocked(me, peer int) {
	msgs := m.messages[keyOf(me, peer)]
	for i := range msgs {
		if msgs[i].From == peer {
			msgs[i].Read = true
		}
	}
}

// ChatSummaries lists every accepted peer of me, most recent chat first.
func (m *Memory) ChatSummaries(_ context.Context, me int) ([]ChatSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ChatSummary{}
	for key, c := range m.connections {
		if c.Status != StatusAccepted || (key.lo != me && key.hi != me) {
			continue
		}
		peer := c.Peer(me)
		cs := ChatSummary{PeerID: peer}
		for _, msg := range m.messages[key] {
			at := msg.CreatedAt
			if cs.LastMessageAt == nil || at.After(*cs.LastMessageAt) {
				cs.LastMessageAt = &at
			}
			if msg.From == peer && !msg.Read {
				cs.Unread++
			}
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := lastOrZero(out[i]), lastOrZero(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].PeerID < out[j].PeerID
	})
	return out, nil
}

func lastOrZero(cs ChatSummary) time.Time {
	if cs.LastMessageAt == nil {
		return time.Time{}
	}
	return *cs.LastMessageAt
}
