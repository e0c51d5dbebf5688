package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNameTaken is returned when a connecting player picks a name already in use.
var ErrNameTaken = errors.New("name already in use")

// Session is one connected player.
type Session struct {
	// UID identifies the connection.
	UID string
	// Name is the display name shown to other players.
	Name string
	// CharacterID is the player's occupant id in the world graph.
	CharacterID int64
	// Outbox delivers lines from other players.
	Outbox *Outbox
}

// Manager tracks all connected sessions. All methods are safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session // uid → session
	byCharacter map[int64]*Session
	nextID      int64
}

// NewManager creates an empty Manager whose character ids start at firstCharacterID.
//
// Precondition: firstCharacterID must be >= 1 and above every occupant id
// already stored in the world.
func NewManager(firstCharacterID int64) *Manager {
	if firstCharacterID < 1 {
		firstCharacterID = 1
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		byCharacter: make(map[int64]*Session),
		nextID:      firstCharacterID,
	}
}

// Add registers a new session for name, issuing a fresh UID and character id.
//
// Precondition: name must be non-blank.
// Postcondition: Returns the session, or ErrNameTaken when another session
// uses the same name, compared case-insensitively.
func (m *Manager) Add(name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if strings.EqualFold(s.Name, name) {
			return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
		}
	}

	uid := uuid.NewString()
	sess := &Session{
		UID:         uid,
		Name:        name,
		CharacterID: m.nextID,
		Outbox:      NewOutbox(uid, 64),
	}
	m.nextID++
	m.sessions[uid] = sess
	m.byCharacter[sess.CharacterID] = sess
	return sess, nil
}

// Remove drops a session and closes its outbox.
//
// Postcondition: Returns an error if uid is not registered.
func (m *Manager) Remove(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[uid]
	if !ok {
		return fmt.Errorf("session %q not found", uid)
	}
	sess.Outbox.Close()
	delete(m.byCharacter, sess.CharacterID)
	delete(m.sessions, uid)
	return nil
}

// Get returns the session for uid.
func (m *Manager) Get(uid string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[uid]
	return sess, ok
}

// ByCharacter returns the session whose character id is id.
func (m *Manager) ByCharacter(id int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.byCharacter[id]
	return sess, ok
}

// Names returns the sorted display names of the given characters, skipping
// ids with no session.
func (m *Manager) Names(characterIDs []int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, id := range characterIDs {
		if sess, ok := m.byCharacter[id]; ok {
			names = append(names, sess.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Broadcast pushes line to every given character's outbox.
//
// Postcondition: Returns how many outboxes accepted the line.
func (m *Manager) Broadcast(characterIDs []int64, line string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	delivered := 0
	for _, id := range characterIDs {
		sess, ok := m.byCharacter[id]
		if !ok {
			continue
		}
		if err := sess.Outbox.Push(line); err == nil {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
