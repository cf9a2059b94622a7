package sqlxrepos

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core/attendance"
)

type recordRow struct {
	Day       string `db:"day"`
	StudentID string `db:"student_id"`
	Status    string `db:"status"`
	Note      string `db:"note"`
}

func (row recordRow) toRecord() attendance.Record {
	return attendance.Record{
		Day:       strings.TrimSpace(row.Day),
		StudentID: row.StudentID,
		Status:    attendance.Status(row.Status),
		Note:      row.Note,
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) selectRecords(query string, args ...interface{}) ([]attendance.Record, error) {
	var rows []recordRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}
	return recs, nil
}

func (repo *attendanceRepository) FindByDay(day string) ([]attendance.Record, error) {
	return repo.selectRecords(`SELECT * FROM attendance WHERE day = $1`, day)
}

func (repo *attendanceRepository) FindByDayAndStudents(day string, studentIDs []string) ([]attendance.Record, error) {
	return repo.selectRecords(
		`SELECT * FROM attendance WHERE day = $1 AND student_id = ANY($2)`,
		day, pq.Array(studentIDs),
	)
}

func (repo *attendanceRepository) DaysWithRecords(studentIDs []string) ([]string, error) {
	var days []string
	err := repo.db.Select(&days,
		`SELECT DISTINCT day FROM attendance WHERE student_id = ANY($1) ORDER BY day`,
		pq.Array(studentIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance days")
	}
	for i, day := range days {
		days[i] = strings.TrimSpace(day)
	}
	return days, nil
}

func (repo *attendanceRepository) FindByDayRange(startDay, endDay string) ([]attendance.Record, error) {
	return repo.selectRecords(
		`SELECT * FROM attendance WHERE day >= $1 AND day <= $2`,
		startDay, endDay,
	)
}

func (repo *attendanceRepository) UpsertBatch(batch []attendance.Record) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "upserting attendance batch")
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range batch {
		_, err = tx.NamedExec(`
			INSERT INTO attendance (day, student_id, status, note)
			VALUES (:day, :student_id, :status, :note)
			ON CONFLICT (day, student_id)
			DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note`,
			recordRow{Day: rec.Day, StudentID: rec.StudentID, Status: string(rec.Status), Note: rec.Note},
		)
		if err != nil {
			return errors.Wrap(err, "upserting attendance record")
		}
	}
	return errors.Wrap(tx.Commit(), "upserting attendance batch")
}
