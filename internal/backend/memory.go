package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory holds every backend repository in process memory. It is used for
// BACKEND=memory development runs and in tests. All methods are safe for
// concurrent use.
type Memory struct {
	clock clockwork.Clock

	mu        sync.Mutex
	accounts  map[string]*Account // by email
	sessions  map[string]memorySession
	attempts  map[string]memoryAttempts
	documents map[string]memoryDocument // by collection/id
}

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

type memoryAttempts struct {
	count     int
	expiresAt time.Time
}

type memoryDocument struct {
	data      []byte
	createdAt time.Time
}

var (
	_ AccountRepository = (*MemoryAccounts)(nil)
	_ SessionStore      = (*MemorySessions)(nil)
	_ AttemptCounter    = (*MemoryAttempts)(nil)
	_ Store             = (*MemoryStore)(nil)
)

// NewMemory creates an empty in-memory backend driven by clock.
func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:     clock,
		accounts:  make(map[string]*Account),
		sessions:  make(map[string]memorySession),
		attempts:  make(map[string]memoryAttempts),
		documents: make(map[string]memoryDocument),
	}
}

// Accounts returns the account repository view.
func (m *Memory) Accounts() *MemoryAccounts { return &MemoryAccounts{m} }

// Sessions returns the session store view.
func (m *Memory) Sessions() *MemorySessions { return &MemorySessions{m} }

// Attempts returns the attempt counter view.
func (m *Memory) Attempts() *MemoryAttempts { return &MemoryAttempts{m} }

// Store returns the document store view.
func (m *Memory) Store() *MemoryStore { return &MemoryStore{m} }

// Reset drops all state.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]*Account)
	m.sessions = make(map[string]memorySession)
	m.attempts = make(map[string]memoryAttempts)
	m.documents = make(map[string]memoryDocument)
}

// --- Accounts ---

// MemoryAccounts implements AccountRepository.
type MemoryAccounts struct{ m *Memory }

func (r *MemoryAccounts) Create(_ context.Context, account *Account) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.accounts[account.Email]; ok {
		return newError(CodeEmailAlreadyInUse, nil)
	}
	cp := *account
	r.m.accounts[account.Email] = &cp
	return nil
}

func (r *MemoryAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[email]
	if !ok {
		return nil, newError(CodeUserNotFound, nil)
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAccounts) EmailExists(_ context.Context, email string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.accounts[email]
	return ok, nil
}

func (r *MemoryAccounts) UpdateLastLogin(_ context.Context, uid string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.accounts {
		if a.UID == uid {
			t := at
			a.LastLoginAt = &t
			return nil
		}
	}
	return newError(CodeUserNotFound, nil)
}

// --- Sessions ---

// MemorySessions implements SessionStore. Sessions are stored JSON-encoded
// so callers never share pointers with the store.
type MemorySessions struct{ m *Memory }

func (s *MemorySessions) Put(_ context.Context, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.sessions[session.Token] = memorySession{data: data, expiresAt: s.m.clock.Now().Add(ttl)}
	return nil
}

func (s *MemorySessions) Get(_ context.Context, token string) (*Session, error) {
	s.m.mu.Lock()
	entry, ok := s.m.sessions[token]
	if ok && !s.m.clock.Now().Before(entry.expiresAt) {
		delete(s.m.sessions, token)
		ok = false
	}
	s.m.mu.Unlock()
	if !ok {
		return nil, newError(CodeNoSession, nil)
	}

	var session Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	session.Token = token
	return &session, nil
}

func (s *MemorySessions) Delete(_ context.Context, token string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.sessions, token)
	return nil
}

// --- Attempts ---

// MemoryAttempts implements AttemptCounter with fixed windows that start
// at the first failure, matching the Redis INCR+EXPIRE counter.
type MemoryAttempts struct{ m *Memory }

func (a *MemoryAttempts) Failures(_ context.Context, email string) (int, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	entry, ok := a.m.attempts[email]
	if !ok || !a.m.clock.Now().Before(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}

func (a *MemoryAttempts) RecordFailure(_ context.Context, email string, window time.Duration) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	now := a.m.clock.Now()
	entry, ok := a.m.attempts[email]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryAttempts{expiresAt: now.Add(window)}
	}
	entry.count++
	a.m.attempts[email] = entry
	return nil
}

func (a *MemoryAttempts) Reset(_ context.Context, email string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	delete(a.m.attempts, email)
	return nil
}

// --- Documents ---

// MemoryStore implements Store. Documents round-trip through JSON so they
// read back with the same value types the MariaDB store produces.
type MemoryStore struct{ m *Memory }

func documentKey(collection, id string) string {
	return collection + "/" + id
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.m.mu.Lock()
	entry, ok := s.m.documents[documentKey(collection, id)]
	s.m.mu.Unlock()
	if !ok {
		return nil, newError(CodeNotFound, nil)
	}

	var doc Document
	if err := json.Unmarshal(entry.data, &doc); err != nil {
		return nil, internalError("decoding document: %w", err)
	}
	return doc, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, doc Document, merge bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := documentKey(collection, id)
	now := s.m.clock.Now()
	resolved := resolveFieldValues(doc, now)

	existing, ok := s.m.documents[key]
	if merge && ok {
		var current Document
		if err := json.Unmarshal(existing.data, &current); err != nil {
			return internalError("decoding document: %w", err)
		}
		resolved = mergeDocuments(current, resolved)
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return internalError("encoding document: %w", err)
	}

	createdAt := now
	if ok {
		createdAt = existing.createdAt
	}
	s.m.documents[key] = memoryDocument{data: data, createdAt: createdAt}
	return nil
}
