// Package session keeps one isolated lakehouse per client conversation. Each
// session owns a DuckDB database file, the most recent document analysis
// awaiting load, and the chat history.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lakelens/lakelens/internal/analyst"
	"github.com/lakelens/lakelens/internal/inference"
	"github.com/lakelens/lakelens/internal/lakehouse"
)

type Session struct {
	ID        string
	Store     *lakehouse.Store
	CreatedAt time.Time

	mu       sync.Mutex
	pending  *inference.ExtractionResult
	messages []analyst.ChatMessage
}

// SetPendingAnalysis stages an extraction result until the client confirms
// the load or replaces it with a newer analysis.
func (s *Session) SetPendingAnalysis(result *inference.ExtractionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = result
}

func (s *Session) PendingAnalysis() (*inference.ExtractionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != nil
}

func (s *Session) ClearPendingAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *Session) AppendMessage(message analyst.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

// Messages returns a copy of the chat history in append order.
func (s *Session) Messages() []analyst.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analyst.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Manager creates and tracks sessions, mapping each to a database file under
// its data directory.
type Manager struct {
	dir string

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir, sessions: make(map[string]*Session)}
}

func (m *Manager) Create() (*Session, error) {
	id := uuid.NewString()
	path := filepath.Join(m.dir, fmt.Sprintf("lakehouse_%s.db", id))
	session := &Session{
		ID:        id,
		Store:     lakehouse.NewStore(path),
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = session
	return session, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Delete drops the session and removes its database file. A missing file is
// not an error since the session may never have loaded data.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q not found", id)
	}
	if err := os.Remove(session.Store.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session database: %w", err)
	}
	return nil
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
