package dummydb

import (
	"sort"

	"github.com/presencaapp/presenca/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

// snapshot must be called with a read lock held.
func (repo *attendanceRepository) snapshot() []attendance.Record {
	recs := make([]attendance.Record, len(repo.db.records))
	copy(recs, repo.db.records)
	return recs
}

func (repo *attendanceRepository) FindByDay(day string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []attendance.Record
	for _, rec := range repo.db.records {
		if rec.Day == day {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (repo *attendanceRepository) FindByDayAndStudents(day string, studentIDs []string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	var recs []attendance.Record
	for _, rec := range repo.db.records {
		if rec.Day != day {
			continue
		}
		if _, ok := wanted[rec.StudentID]; ok {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (repo *attendanceRepository) DaysWithRecords(studentIDs []string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var days []string
	for _, rec := range repo.db.records {
		if _, ok := wanted[rec.StudentID]; !ok {
			continue
		}
		if _, ok := seen[rec.Day]; ok {
			continue
		}
		seen[rec.Day] = struct{}{}
		days = append(days, rec.Day)
	}
	sort.Strings(days)
	return days, nil
}

func (repo *attendanceRepository) FindByDayRange(startDay, endDay string) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []attendance.Record
	for _, rec := range repo.db.records {
		if startDay <= rec.Day && rec.Day <= endDay {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (repo *attendanceRepository) UpsertBatch(batch []attendance.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	recs := repo.snapshot()
	idx := make(map[attendance.RecordKey]int, len(recs))
	for i, rec := range recs {
		idx[rec.Key()] = i
	}

	for _, rec := range batch {
		if i, ok := idx[rec.Key()]; ok {
			recs[i] = rec
		} else {
			idx[rec.Key()] = len(recs)
			recs = append(recs, rec)
		}
	}

	// one synchronous write of the whole collection
	repo.db.records = recs
	return nil
}
