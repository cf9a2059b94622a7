package attendance

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/school"
)

// Session states
type State string

const (
	StateViewing          State = "viewing"
	StateDraftingUnlocked State = "drafting_unlocked"
	StateDraftingLocked   State = "drafting_locked"
	StateSaving           State = "saving"
)

var (
	// errors
	ErrLocked         = errors.New("session is locked")
	ErrOutsideTenure  = errors.New("teacher has no active tenure on this day")
	ErrCommitInFlight = errors.New("a commit is already in flight")
	ErrSessionClosed  = errors.New("session is closed")
)

// Session drives one "mark attendance for class X on day Y" editing
// session. It seeds its draft from saved records, gates every mutation on
// the lock state and the teacher's tenure, and commits a normalized batch
// of exactly one record per enrolled student.
//
// The gates hold regardless of what a client renders: a locked or
// out-of-tenure mutation is dropped here even if a UI forgot to disable
// its controls.
type Session struct {
	mu sync.Mutex

	svc       *Service
	suggester NoteSuggester
	logger    core.Logger

	class     school.Class
	teacherID string // acting teacher; empty for roles with no tenure (secretary)

	day    string
	state  State
	rows   []Row
	rowIdx map[string]int // studentID -> index into rows

	// seedGen increments on every re-seed and on Close; a suggestion
	// started under an older generation discards its result.
	seedGen uint64
	closed  bool
}

func NewSession(svc *Service, suggester NoteSuggester, logger core.Logger, class school.Class, teacherID string) *Session {
	return &Session{
		svc:       svc,
		suggester: suggester,
		logger:    logger,
		class:     class,
		teacherID: teacherID,
		state:     StateViewing,
	}
}

// Open seeds the draft for the given day. When saved records exist the
// session opens locked; otherwise every enrolled student defaults to
// present and the session opens unlocked.
func (s *Session) Open(day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed(day)
}

// ChangeDay re-runs the seed step from scratch for the new day. The
// previous day's draft is discarded, never merged.
func (s *Session) ChangeDay(day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaving {
		return ErrCommitInFlight
	}
	return s.seed(day)
}

// seed must be called with s.mu held.
func (s *Session) seed(day string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if !core.ValidDay(day) {
		return errors.Errorf("invalid day %q", day)
	}

	seed, err := s.svc.SeedForClass(s.class.ID, day)
	if err != nil {
		return err
	}

	s.day = day
	s.rows = seed.Rows
	s.rowIdx = make(map[string]int, len(seed.Rows))
	for i, row := range seed.Rows {
		s.rowIdx[row.Student.ID] = i
	}
	if seed.Locked {
		s.state = StateDraftingLocked
	} else {
		s.state = StateDraftingUnlocked
	}
	s.seedGen++
	return nil
}

// Unlock reopens a locked session for editing. Only a teacher within
// tenure for the selected day may unlock.
func (s *Session) Unlock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateSaving:
		return ErrCommitInFlight
	case StateDraftingLocked:
	default:
		return nil // nothing to unlock
	}
	if !s.tenured() {
		return ErrOutsideTenure
	}
	s.state = StateDraftingUnlocked
	return nil
}

// SetStatus updates one student's draft status. The mutation is silently
// dropped when the session is locked, the teacher is out of tenure, the
// status is invalid or the student is not enrolled.
func (s *Session) SetStatus(studentID string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() || !status.Valid() {
		return
	}
	if i, ok := s.rowIdx[studentID]; ok {
		s.rows[i].Status = status
	}
}

// SetNote updates one student's draft note, under the same gates as
// SetStatus.
func (s *Session) SetNote(studentID, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mutable() {
		return
	}
	if i, ok := s.rowIdx[studentID]; ok {
		s.rows[i].Note = note
	}
}

// mutable must be called with s.mu held.
func (s *Session) mutable() bool {
	return s.state == StateDraftingUnlocked && s.tenured()
}

// tenured must be called with s.mu held.
func (s *Session) tenured() bool {
	return WithinTenure(s.class, s.teacherID, s.day)
}

// Commit persists the draft: exactly one record per enrolled student with
// their current status and note. Only an unlocked, tenured session may
// commit, and at most one commit is in flight at a time. On store failure
// the session returns to unlocked drafting so the commit can be retried;
// on success it lands locked.
func (s *Session) Commit() error {
	s.mu.Lock()
	switch s.state {
	case StateSaving:
		s.mu.Unlock()
		return ErrCommitInFlight
	case StateDraftingLocked:
		s.mu.Unlock()
		return ErrLocked
	case StateDraftingUnlocked:
	default:
		s.mu.Unlock()
		return errors.Errorf("cannot commit from state %q", s.state)
	}
	if !s.tenured() {
		s.mu.Unlock()
		return ErrOutsideTenure
	}

	s.state = StateSaving
	batch := make([]Record, 0, len(s.rows))
	for _, row := range s.rows {
		batch = append(batch, Record{
			Day:       s.day,
			StudentID: row.Student.ID,
			Status:    row.Status,
			Note:      row.Note,
		})
	}
	s.mu.Unlock()

	// The store call runs outside the session lock; an in-flight commit
	// always completes and lands its write even if the session is closed
	// meanwhile.
	err := s.svc.repo.UpsertBatch(batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateDraftingUnlocked
		return errors.Wrap(err, "committing attendance batch")
	}
	s.state = StateDraftingLocked
	return nil
}

// SuggestNote asks the note suggester, on its own goroutine, for a short
// note for the given student and writes the result into the draft. A
// failure is logged and swallowed, and a result arriving after the
// session re-seeded or closed is discarded.
func (s *Session) SuggestNote(ctx context.Context, studentID string) {
	if s.suggester == nil {
		return
	}

	s.mu.Lock()
	if !s.mutable() {
		s.mu.Unlock()
		return
	}
	i, ok := s.rowIdx[studentID]
	if !ok {
		s.mu.Unlock()
		return
	}
	gen := s.seedGen
	name := s.rows[i].Student.Name
	status := s.rows[i].Status
	s.mu.Unlock()

	go func() {
		note, err := s.suggester.SuggestNote(ctx, name, status)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("note suggestion failed", err)
			}
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seedGen != gen || !s.mutable() {
			return // stale: the draft moved on without us
		}
		if i, ok := s.rowIdx[studentID]; ok {
			s.rows[i].Note = note
		}
	}()
}

// Close discards the draft without persisting and returns to viewing.
// It does not cancel an in-flight commit.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.state = StateViewing
	s.rows = nil
	s.rowIdx = nil
	s.seedGen++
}

// Accessors

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Day() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Tenured reports whether the acting teacher is within tenure for the
// selected day. Re-evaluated on every call, never cached across day
// changes.
func (s *Session) Tenured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenured()
}

// Rows returns a copy of the draft rows in roster order.
func (s *Session) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]Row, len(s.rows))
	copy(rows, s.rows)
	return rows
}
