package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencaapp/presenca/core/attendance"
	testutil "github.com/presencaapp/presenca/tests"
)

func newTestSession(f *fixture, suggester attendance.NoteSuggester) *attendance.Session {
	return attendance.NewSession(f.svc, suggester, nil, f.class, f.teacher.ID)
}

func rowsByStudent(s *attendance.Session) map[string]attendance.Row {
	rows := s.Rows()
	byID := make(map[string]attendance.Row, len(rows))
	for _, row := range rows {
		byID[row.Student.ID] = row
	}
	return byID
}

func TestSessionOpensUnlockedWhenNoRecords(t *testing.T) {
	f := newFixture(t)
	s := newTestSession(f, nil)

	require.NoError(t, s.Open("2024-03-15"))
	assert.Equal(t, attendance.StateDraftingUnlocked, s.State())
	assert.True(t, s.Tenured())
	require.Len(t, s.Rows(), 2)
	for _, row := range s.Rows() {
		assert.Equal(t, attendance.StatusPresent, row.Status)
	}
}

func TestSessionMarkAndCommit(t *testing.T) {
	f := newFixture(t)
	s := newTestSession(f, nil)

	require.NoError(t, s.Open("2024-03-15"))
	s.SetStatus(f.s2.ID, attendance.StatusAbsent)
	require.NoError(t, s.Commit())
	assert.Equal(t, attendance.StateDraftingLocked, s.State())

	// exactly one record per enrolled student
	recs, err := f.attRepo.FindByDay("2024-03-15")
	require.NoError(t, err)
	assert.ElementsMatch(t, []attendance.Record{
		{Day: "2024-03-15", StudentID: f.s1.ID, Status: attendance.StatusPresent},
		{Day: "2024-03-15", StudentID: f.s2.ID, Status: attendance.StatusAbsent},
	}, recs)

	// reopening that day seeds a locked session with those exact values
	s2 := newTestSession(f, nil)
	require.NoError(t, s2.Open("2024-03-15"))
	assert.Equal(t, attendance.StateDraftingLocked, s2.State())
	byID := rowsByStudent(s2)
	assert.Equal(t, attendance.StatusPresent, byID[f.s1.ID].Status)
	assert.Equal(t, attendance.StatusAbsent, byID[f.s2.ID].Status)
}

func TestSessionRoundTripKeepsRecordsByteIdentical(t *testing.T) {
	f := newFixture(t)
	saved := []attendance.Record{
		{Day: "2024-03-15", StudentID: f.s1.ID, Status: attendance.StatusJustified, Note: "medical"},
		{Day: "2024-03-15", StudentID: f.s2.ID, Status: attendance.StatusAbsent, Note: ""},
	}
	require.NoError(t, f.attRepo.UpsertBatch(saved))

	s := newTestSession(f, nil)
	require.NoError(t, s.Open("2024-03-15"))
	require.Equal(t, attendance.StateDraftingLocked, s.State())
	require.NoError(t, s.Unlock())

	// no changes, commit straight away
	require.NoError(t, s.Commit())

	recs, err := f.attRepo.FindByDay("2024-03-15")
	require.NoError(t, err)
	assert.ElementsMatch(t, saved, recs)
}

func TestSessionLockedRejectsMutation(t *testing.T) {
	f := newFixture(t)
	testutil.CreateRecord(t, f.attRepo, "2024-03-15", f.s1.ID, attendance.StatusPresent, "")

	s := newTestSession(f, nil)
	require.NoError(t, s.Open("2024-03-15"))
	require.Equal(t, attendance.StateDraftingLocked, s.State())

	s.SetStatus(f.s1.ID, attendance.StatusAbsent)
	s.SetNote(f.s1.ID, "should not land")

	byID := rowsByStudent(s)
	assert.Equal(t, attendance.StatusPresent, byID[f.s1.ID].Status)
	assert.Empty(t, byID[f.s1.ID].Note)

	assert.Equal(t, attendance.ErrLocked, s.Commit())
}

func TestSessionOutsideTenure(t *testing.T) {
	f := newFixture(t)
	s := newTestSession(f, nil)

	// 2024-07-01 is past the tenure window's last day
	require.NoError(t, s.Open("2024-07-01"))
	assert.False(t, s.Tenured())

	s.SetStatus(f.s1.ID, attendance.StatusAbsent)
	byID := rowsByStudent(s)
	assert.Equal(t, attendance.StatusPresent, byID[f.s1.ID].Status)

	assert.Equal(t, attendance.ErrOutsideTenure, s.Commit())

	// no record was written
	recs, err := f.attRepo.FindByDay("2024-07-01")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSessionUnlockRequiresTenure(t *testing.T) {
	f := newFixture(t)
	testutil.CreateRecord(t, f.attRepo, "2024-07-01", f.s1.ID, attendance.StatusPresent, "")

	s := newTestSession(f, nil)
	require.NoError(t, s.Open("2024-07-01"))
	require.Equal(t, attendance.StateDraftingLocked, s.State())

	assert.Equal(t, attendance.ErrOutsideTenure, s.Unlock())
	assert.Equal(t, attendance.StateDraftingLocked, s.State())
}

func TestSessionChangeDayReseedsFromScratch(t *testing.T) {
	f := newFixture(t)
	s := newTestSession(f, nil)

	require.NoError(t, s.Open("2024-03-15"))
	s.SetStatus(f.s1.ID, attendance.StatusAbsent)

	// drafts never merge across days
	require.NoError(t, s.ChangeDay("2024-03-16"))
	byID := rowsByStudent(s)
	assert.Equal(t, attendance.StatusPresent, byID[f.s1.ID].Status)

	// coming back re-derives the state from storage, not from the old draft
	require.NoError(t, s.ChangeDay("2024-03-15"))
	byID = rowsByStudent(s)
	assert.Equal(t, attendance.StatusPresent, byID[f.s1.ID].Status)
}

type failingRepo struct {
	attendance.Repository
}

func (failingRepo) UpsertBatch([]attendance.Record) error {
	return errors.New("write refused")
}

func TestSessionCommitFailureReturnsToUnlocked(t *testing.T) {
	f := newFixture(t)
	svc := attendance.NewService(failingRepo{f.attRepo}, f.schoolRepo)
	s := attendance.NewSession(svc, nil, nil, f.class, f.teacher.ID)

	require.NoError(t, s.Open("2024-03-15"))
	s.SetStatus(f.s1.ID, attendance.StatusAbsent)

	err := s.Commit()
	require.Error(t, err)
	assert.Equal(t, attendance.StateDraftingUnlocked, s.State())

	// the draft survives for a retry
	byID := rowsByStudent(s)
	assert.Equal(t, attendance.StatusAbsent, byID[f.s1.ID].Status)
}

type blockingRepo struct {
	attendance.Repository
	proceed chan struct{}
	entered chan struct{}
}

func (r blockingRepo) UpsertBatch(recs []attendance.Record) error {
	r.entered <- struct{}{}
	<-r.proceed
	return r.Repository.UpsertBatch(recs)
}

func TestSessionSingleCommitInFlight(t *testing.T) {
	f := newFixture(t)
	repo := blockingRepo{
		Repository: f.attRepo,
		proceed:    make(chan struct{}),
		entered:    make(chan struct{}),
	}
	svc := attendance.NewService(repo, f.schoolRepo)
	s := attendance.NewSession(svc, nil, nil, f.class, f.teacher.ID)

	require.NoError(t, s.Open("2024-03-15"))

	done := make(chan error, 1)
	go func() { done <- s.Commit() }()
	<-repo.entered // first commit is now in flight

	assert.Equal(t, attendance.StateSaving, s.State())
	assert.Equal(t, attendance.ErrCommitInFlight, s.Commit())

	close(repo.proceed)
	require.NoError(t, <-done)
	assert.Equal(t, attendance.StateDraftingLocked, s.State())
}

type stubSuggester struct {
	note    string
	err     error
	proceed chan struct{}
}

func (s stubSuggester) SuggestNote(ctx context.Context, studentName string, status attendance.Status) (string, error) {
	if s.proceed != nil {
		<-s.proceed
	}
	return s.note, s.err
}

func TestSessionSuggestNote(t *testing.T) {
	f := newFixture(t)
	s := newTestSession(f, stubSuggester{note: "felt unwell after lunch"})

	require.NoError(t, s.Open("2024-03-15"))
	s.SetStatus(f.s1.ID, attendance.StatusJustified)
	s.SuggestNote(context.Background(), f.s1.ID)

	assert.Eventually(t, func() bool {
		return rowsByStudent(s)[f.s1.ID].Note == "felt unwell after lunch"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionSuggestNoteFailureLeavesDraftIntact(t *testing.T) {
	f := newFixture(t)
	s := newTestSession(f, stubSuggester{err: errors.New("model unavailable")})

	require.NoError(t, s.Open("2024-03-15"))
	s.SetNote(f.s1.ID, "typed by hand")
	s.SuggestNote(context.Background(), f.s1.ID)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "typed by hand", rowsByStudent(s)[f.s1.ID].Note)
}

func TestSessionStaleSuggestionDiscarded(t *testing.T) {
	f := newFixture(t)
	sugg := stubSuggester{note: "late arrival", proceed: make(chan struct{})}
	s := newTestSession(f, sugg)

	require.NoError(t, s.Open("2024-03-15"))
	s.SuggestNote(context.Background(), f.s1.ID)

	// the draft moves on before the suggestion lands
	require.NoError(t, s.ChangeDay("2024-03-16"))
	close(sugg.proceed)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rowsByStudent(s)[f.s1.ID].Note)
}

func TestSessionCloseDiscardsDraft(t *testing.T) {
	f := newFixture(t)
	sugg := stubSuggester{note: "late arrival", proceed: make(chan struct{})}
	s := newTestSession(f, sugg)

	require.NoError(t, s.Open("2024-03-15"))
	s.SuggestNote(context.Background(), f.s1.ID)
	s.Close()

	assert.Equal(t, attendance.StateViewing, s.State())
	assert.Empty(t, s.Rows())

	// a suggestion arriving after close is a no-op
	close(sugg.proceed)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, s.Rows())

	// a closed session cannot be reopened
	assert.Equal(t, attendance.ErrSessionClosed, s.Open("2024-03-15"))

	recs, err := f.attRepo.FindByDay("2024-03-15")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
