// Package session provides the in-process session store and checkpoint
// storage for pause/resume. Sessions are evicted least-recently-accessed
// once the configured maximum is exceeded; checkpoints are bounded by count,
// oldest dropped on overflow.
//
// The service is synchronous and non-blocking: nothing in this package
// suspends. A single mutex serialises all access to the session and
// checkpoint maps.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/pharmascope/pharmascope/pkg/types"
)

var (
	// ErrSessionNotFound indicates the referenced session id does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCheckpointNotFound indicates the referenced checkpoint id does not exist.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Session represents one logical conversation thread.
type Session struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	LastAccessed  time.Time      `json:"last_accessed"`
	AnalysisCount int            `json:"analysis_count"`
	LastQuery     string         `json:"last_query,omitempty"`
	LastUpdate    time.Time      `json:"last_update,omitempty"`
	State         map[string]any `json:"state"`
	History       []Interaction  `json:"history"`
}

// Interaction is one append-only history entry on a session.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
}

// Phase tags the farthest completed pipeline phase at the moment of pausing.
type Phase string

const (
	// PhaseResearchComplete means research finished; analysis and report remain.
	PhaseResearchComplete Phase = "research_complete"

	// PhaseAnalysisComplete means analysis finished; only the report remains.
	PhaseAnalysisComplete Phase = "analysis_complete"
)

// Checkpoint is a snapshot of in-flight orchestration state. Checkpoints are
// never mutated after save, only replaced under a new id.
type Checkpoint struct {
	ID              string                 `json:"id"`
	Phase           Phase                  `json:"phase"`
	SessionID       string                 `json:"session_id,omitempty"`
	Query           string                 `json:"query"`
	ResearchResults []types.ResearchResult `json:"research_results"`
	AnalysisResult  *types.AnalysisResult  `json:"analysis_result,omitempty"`
	SavedAt         time.Time              `json:"saved_at"`
}

// Update describes a merge applied to a session's top-level fields.
// Nil pointer fields are left untouched; State entries are merged per key
// (last write wins); History entries are appended.
type Update struct {
	AnalysisCount *int
	LastQuery     *string
	LastUpdate    *time.Time
	State         map[string]any
	History       []Interaction
}

// Service manages sessions and checkpoints in memory.
type Service struct {
	mu              sync.Mutex
	sessions        *lru.Cache[string, *Session]
	checkpoints     map[string]*Checkpoint
	checkpointOrder []string
	maxCheckpoints  int
}

// NewService creates a session service holding at most maxSessions live
// sessions and maxCheckpoints saved checkpoints. Non-positive bounds fall
// back to 100 sessions and 50 checkpoints.
func NewService(maxSessions, maxCheckpoints int) (*Service, error) {
	if maxSessions <= 0 {
		maxSessions = 100
	}
	if maxCheckpoints <= 0 {
		maxCheckpoints = 50
	}

	cache, err := lru.New[string, *Session](maxSessions)
	if err != nil {
		return nil, err
	}

	return &Service{
		sessions:       cache,
		checkpoints:    make(map[string]*Checkpoint),
		maxCheckpoints: maxCheckpoints,
	}, nil
}

// GetOrCreate returns the existing session for id with last_accessed
// refreshed, or allocates a new session. An empty id always allocates.
// Inserting beyond the maximum evicts the least-recently-accessed session
// silently.
func (s *Service) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions.Get(id); ok {
			sess.LastAccessed = time.Now()
			return sess
		}
	}

	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		CreatedAt:    now,
		LastAccessed: now,
		State:        make(map[string]any),
	}
	s.sessions.Add(id, sess)

	return sess
}

// Update merges updates into the session and refreshes last_accessed.
// Returns ErrSessionNotFound for unknown ids; never creates a session.
func (s *Service) Update(id string, upd Update) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	if upd.AnalysisCount != nil {
		sess.AnalysisCount = *upd.AnalysisCount
	}
	if upd.LastQuery != nil {
		sess.LastQuery = *upd.LastQuery
	}
	if upd.LastUpdate != nil {
		sess.LastUpdate = *upd.LastUpdate
	}
	for k, v := range upd.State {
		sess.State[k] = v
	}
	sess.History = append(sess.History, upd.History...)
	sess.LastAccessed = time.Now()

	return sess, nil
}

// Get is a pure lookup with no side effect on last_accessed or recency.
// Returns nil when the session is absent.
func (s *Service) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.sessions.Peek(id)
	return sess
}

// Delete removes a session. Idempotent: a no-op when absent.
func (s *Service) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Remove(id)
}

// List returns all live sessions in least-recently-accessed order without
// touching recency.
func (s *Service) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Values()
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Len()
}

// With acquires a session for the duration of fn. On exit, normal or not,
// the session's last_accessed is refreshed exactly once.
func (s *Service) With(id string, fn func(*Session) error) error {
	sess := s.GetOrCreate(id)
	defer s.touch(sess.ID)
	return fn(sess)
}

// touch refreshes last_accessed and LRU recency for a live session.
func (s *Service) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(id); ok {
		sess.LastAccessed = time.Now()
	}
}

// SaveCheckpoint stores a checkpoint, assigning a ULID when it carries no id,
// and stamps saved_at. An existing id is overwritten silently. When the
// retained count exceeds the bound, the oldest checkpoint is dropped.
func (s *Service) SaveCheckpoint(cp *Checkpoint) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cp.ID == "" {
		cp.ID = ulid.Make().String()
	}
	cp.SavedAt = time.Now()

	if _, exists := s.checkpoints[cp.ID]; !exists {
		s.checkpointOrder = append(s.checkpointOrder, cp.ID)
	}
	s.checkpoints[cp.ID] = cp

	for len(s.checkpointOrder) > s.maxCheckpoints {
		oldest := s.checkpointOrder[0]
		s.checkpointOrder = s.checkpointOrder[1:]
		delete(s.checkpoints, oldest)
	}

	return cp.ID
}

// LoadCheckpoint retrieves a checkpoint by id. The returned checkpoint is
// read-only by convention. Returns ErrCheckpointNotFound when absent.
func (s *Service) LoadCheckpoint(id string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[id]
	if !ok {
		return nil, ErrCheckpointNotFound
	}
	return cp, nil
}

// DeleteCheckpoint removes a checkpoint. Idempotent.
func (s *Service) DeleteCheckpoint(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checkpoints[id]; !ok {
		return
	}
	delete(s.checkpoints, id)
	for i, existing := range s.checkpointOrder {
		if existing == id {
			s.checkpointOrder = append(s.checkpointOrder[:i], s.checkpointOrder[i+1:]...)
			break
		}
	}
}

// ListCheckpoints returns saved checkpoints in save order, optionally
// filtered to those referencing the given session id.
func (s *Service) ListCheckpoints(sessionID string) []*Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Checkpoint, 0, len(s.checkpointOrder))
	for _, id := range s.checkpointOrder {
		cp := s.checkpoints[id]
		if sessionID != "" && cp.SessionID != sessionID {
			continue
		}
		out = append(out, cp)
	}
	return out
}

// Close discards all sessions and checkpoints.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Purge()
	s.checkpoints = make(map[string]*Checkpoint)
	s.checkpointOrder = nil
}
