package attendance

import (
	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core/school"
)

var (
	// errors
	ErrClassNotFound = errors.New("class not found")
)

type (
	// Repository is the attendance record store. Implementations hold one
	// flat collection of records across all classes and days; class scope
	// is always derived through the student roster, never stored.
	Repository interface {
		// FindByDay returns all records across all classes for the given day.
		FindByDay(day string) ([]Record, error)
		// FindByDayAndStudents restricts FindByDay to the given students;
		// used to seed a class-scoped editing session.
		FindByDayAndStudents(day string, studentIDs []string) ([]Record, error)
		// DaysWithRecords returns the distinct days for which at least one
		// of the given students has a record, sorted ascending, deduped.
		DaysWithRecords(studentIDs []string) ([]string, error)
		// FindByDayRange returns all records with startDay <= day <= endDay,
		// inclusive on both bounds.
		FindByDayRange(startDay, endDay string) ([]Record, error)
		// UpsertBatch replaces each existing record sharing an incoming
		// record's natural key and appends the rest. Records outside the
		// batch's keys are preserved untouched. Idempotent.
		UpsertBatch(recs []Record) error
	}

	// Roster is the slice of the school domain the attendance core reads.
	Roster interface {
		GetClassByID(id string) (school.Class, error)
		GetStudentsByClassID(classID string) ([]school.Student, error)
	}

	Service struct {
		repo   Repository
		roster Roster
	}
)

func NewService(repo Repository, roster Roster) *Service {
	return &Service{repo: repo, roster: roster}
}

func (svc *Service) Repo() Repository { return svc.repo }

// Seed is the starting state of an editing session for one (class, day):
// one row per enrolled student, locked when saved records already exist.
type Seed struct {
	Class  school.Class
	Day    string
	Locked bool
	Rows   []Row
}

// Row pairs an enrolled student with their draft status and note.
type Row struct {
	Student school.Student `json:"student"`
	Status  Status         `json:"status"`
	Note    string         `json:"note"`
}

// SeedForClass loads the seed state for marking attendance on the given
// day: existing records for the class's students when any were saved
// (locked), otherwise every student defaults to present with an empty
// note (unlocked).
func (svc *Service) SeedForClass(classID, day string) (Seed, error) {
	cls, err := svc.roster.GetClassByID(classID)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return Seed{}, ErrClassNotFound
		}
		return Seed{}, err
	}
	students, err := svc.roster.GetStudentsByClassID(classID)
	if err != nil {
		return Seed{}, err
	}

	ids := make([]string, 0, len(students))
	for _, std := range students {
		ids = append(ids, std.ID)
	}
	recs, err := svc.repo.FindByDayAndStudents(day, ids)
	if err != nil {
		return Seed{}, err
	}

	byStudent := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byStudent[rec.StudentID] = rec
	}

	seed := Seed{
		Class:  cls,
		Day:    day,
		Locked: len(recs) > 0,
		Rows:   make([]Row, 0, len(students)),
	}
	for _, std := range students {
		row := Row{Student: std, Status: StatusPresent}
		if rec, ok := byStudent[std.ID]; ok {
			row.Status = rec.Status
			row.Note = rec.Note
		}
		seed.Rows = append(seed.Rows, row)
	}
	return seed, nil
}

// DaysForClass returns the days for which the class has saved attendance,
// sorted ascending.
func (svc *Service) DaysForClass(classID string) ([]string, error) {
	students, err := svc.roster.GetStudentsByClassID(classID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(students))
	for _, std := range students {
		ids = append(ids, std.ID)
	}
	return svc.repo.DaysWithRecords(ids)
}
