package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"photomotion/internal/generation"
)

var (
	// ErrInFlight is returned when a session already has a generation running.
	ErrInFlight = errors.New("session: a generation is already in flight")
	// ErrNoVideo is returned when a session has no playable result.
	ErrNoVideo = errors.New("session: no video available")
)

// Snapshot is an immutable view of a session for the HTTP layer.
type Snapshot struct {
	SessionID    string
	GenerationID string
	State        generation.State
	Step         generation.Step
	Prompt       string
	AspectRatio  generation.AspectRatio
	ErrorKind    generation.Kind
	ErrorMessage string
	HasVideo     bool
	VideoMIME    string
}

// Session holds the UI-visible state of one browsing session: the state
// machine position, the in-flight generation, and — after success — the video
// bytes. Videos never leave process memory; they live and die with the entry.
type Session struct {
	id string

	mu        sync.Mutex
	genID     string
	state     generation.State
	step      generation.Step
	prompt    string
	aspect    generation.AspectRatio
	errKind   generation.Kind
	errMsg    string
	video     []byte
	videoMIME string
	lastSeen  time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) touchLocked() {
	s.lastSeen = time.Now()
}

func (s *Session) begin(genID, prompt string, aspect generation.AspectRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if !s.state.CanSubmit() {
		if s.state == generation.StateLoading || s.state == generation.StatePolling {
			return ErrInFlight
		}
		return errors.New("session: submit not allowed in state " + string(s.state))
	}
	s.genID = genID
	s.state = generation.StateLoading
	s.step = generation.StepNone
	s.prompt = prompt
	s.aspect = aspect
	s.errKind = generation.KindUnclassified
	s.errMsg = ""
	s.video = nil
	s.videoMIME = ""
	return nil
}

// SetStep records the pipeline step about to run. Entering the wait step moves
// the state machine from loading to polling.
func (s *Session) SetStep(step generation.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	if step == generation.StepWaiting && s.state == generation.StateLoading {
		s.state = generation.StatePolling
	}
}

// Succeed stores the downloaded video and completes the run.
func (s *Session) Succeed(video []byte, mime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.state = generation.StateSuccess
	s.step = generation.StepNone
	s.video = video
	s.videoMIME = mime
}

// Fail records a terminal failure. Key failures route to selecting_key; every
// other kind lands in the generic error state.
func (s *Session) Fail(kind generation.Kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if kind == generation.KindAPIKey {
		s.state = generation.StateSelectingKey
	} else {
		s.state = generation.StateError
	}
	s.step = generation.StepNone
	s.errKind = kind
	s.errMsg = message
}

// MarkSelectingKey routes the session to key selection without a pipeline run,
// used when a submission arrives while the gate reports absent.
func (s *Session) MarkSelectingKey() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.state = generation.StateSelectingKey
}

// Reset returns the session to idle, clearing the image-derived state, prompt,
// result, and error. When the credential is absent the session lands in
// selecting_key instead. A run still in flight cannot be reset.
func (s *Session) Reset(credentialAbsent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.state == generation.StateLoading || s.state == generation.StatePolling {
		return ErrInFlight
	}
	s.genID = ""
	s.state = generation.StateIdle
	if credentialAbsent {
		s.state = generation.StateSelectingKey
	}
	s.step = generation.StepNone
	s.prompt = ""
	s.aspect = ""
	s.errKind = generation.KindUnclassified
	s.errMsg = ""
	s.video = nil
	s.videoMIME = ""
	return nil
}

// Video returns the stored video bytes for serving.
func (s *Session) Video() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.state != generation.StateSuccess || len(s.video) == 0 {
		return nil, "", ErrNoVideo
	}
	return s.video, s.videoMIME, nil
}

// Snapshot copies the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return Snapshot{
		SessionID:    s.id,
		GenerationID: s.genID,
		State:        s.state,
		Step:         s.step,
		Prompt:       s.prompt,
		AspectRatio:  s.aspect,
		ErrorKind:    s.errKind,
		ErrorMessage: s.errMsg,
		HasVideo:     len(s.video) > 0,
		VideoMIME:    s.videoMIME,
	}
}

// Store is the in-memory session registry. Entries expire after the TTL since
// their last use; expiry is the only teardown a session gets.
type Store struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	byGen    map[string]*Session
}

// NewStore creates a registry whose entries expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		byGen:    make(map[string]*Session),
	}
}

// Ensure returns the session with the given ID, creating a fresh idle one when
// the ID is empty or unknown.
func (s *Store) Ensure(id string) *Session {
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return sess
		}
	}

	sess := &Session{
		id:       uuid.NewString(),
		state:    generation.StateIdle,
		lastSeen: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

// ByGeneration resolves the session that owns a generation ID.
func (s *Store) ByGeneration(genID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byGen[genID]
	return sess, ok
}

// Begin starts a generation on the session and returns its new ID.
func (s *Store) Begin(sess *Session, prompt string, aspect generation.AspectRatio) (string, error) {
	genID := uuid.NewString()
	if err := sess.begin(genID, prompt, aspect); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.byGen[genID] = sess
	s.mu.Unlock()
	return genID, nil
}

// Run sweeps expired sessions until the context is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := now.Sub(sess.lastSeen) > s.ttl
		inFlight := sess.state == generation.StateLoading || sess.state == generation.StatePolling
		genID := sess.genID
		sess.mu.Unlock()
		if expired && !inFlight {
			delete(s.sessions, id)
			if genID != "" {
				delete(s.byGen, genID)
			}
		}
	}
}
