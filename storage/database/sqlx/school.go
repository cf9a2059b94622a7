package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/school"
)

type teacherRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row teacherRow) toTeacher() school.Teacher {
	return school.Teacher(row)
}

type classRow struct {
	ID               string      `db:"id"`
	Name             string      `db:"name"`
	Period           string      `db:"period"`
	PrimaryTeacherID null.String `db:"primary_teacher_id"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (row classRow) toClass(tenures []school.TenureAssignment) school.Class {
	return school.Class{
		ID:               row.ID,
		Name:             row.Name,
		Period:           row.Period,
		PrimaryTeacherID: row.PrimaryTeacherID.String,
		Tenures:          tenures,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

type tenureRow struct {
	ID        string    `db:"id"`
	ClassID   string    `db:"class_id"`
	TeacherID string    `db:"teacher_id"`
	StartDay  string    `db:"start_day"`
	EndDay    string    `db:"end_day"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

func (row tenureRow) toTenure() school.TenureAssignment {
	return school.TenureAssignment{
		ID:        row.ID,
		TeacherID: row.TeacherID,
		StartDay:  strings.TrimSpace(row.StartDay),
		EndDay:    strings.TrimSpace(row.EndDay),
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
	}
}

type studentRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	ClassID      string      `db:"class_id"`
	GuardianName string      `db:"guardian_name"`
	PhotoURL     null.String `db:"photo_url"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (row studentRow) toStudent() school.Student {
	return school.Student{
		ID:           row.ID,
		Name:         row.Name,
		ClassID:      row.ClassID,
		GuardianName: row.GuardianName,
		PhotoURL:     row.PhotoURL.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

// Teachers

func (repo *schoolRepository) CreateTeacher(tchr school.Teacher) (school.Teacher, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO teacher (id, name, email, created_at, updated_at)
		VALUES (:id, :name, :email, :created_at, :updated_at)`,
		teacherRow(tchr),
	)
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "creating teacher")
	}
	return tchr, nil
}

func (repo *schoolRepository) QueryAllTeachers() ([]school.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.Select(&rows, `SELECT * FROM teacher ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.toTeacher())
	}
	return teachers, nil
}

func (repo *schoolRepository) GetTeacherByID(id string) (school.Teacher, error) {
	var row teacherRow
	if err := repo.db.Get(&row, `SELECT * FROM teacher WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Teacher{}, school.ErrTeacherNotFound
		}
		return school.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	return row.toTeacher(), nil
}

func (repo *schoolRepository) UpdateTeacher(tchr school.Teacher) (school.Teacher, error) {
	origTchr, err := repo.GetTeacherByID(tchr.ID)
	if err != nil {
		return school.Teacher{}, err
	}
	if tchr.Name != "" {
		origTchr.Name = tchr.Name
	}
	if tchr.Email != "" {
		origTchr.Email = tchr.Email
	}
	origTchr.UpdatedAt = tchr.UpdatedAt

	_, err = repo.db.NamedExec(`
		UPDATE teacher SET name = :name, email = :email, updated_at = :updated_at WHERE id = :id`,
		teacherRow(origTchr),
	)
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	return origTchr, nil
}

func (repo *schoolRepository) DeleteTeachersByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM teacher WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting teachers")
	}
	return nil
}

// Classes

func (repo *schoolRepository) CreateClass(cls school.Class) (school.Class, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	defer func() { _ = tx.Rollback() }()

	row := classRow{
		ID:        cls.ID,
		Name:      cls.Name,
		Period:    cls.Period,
		CreatedAt: cls.CreatedAt,
		UpdatedAt: cls.UpdatedAt,
	}
	if cls.PrimaryTeacherID != "" {
		row.PrimaryTeacherID = null.StringFrom(cls.PrimaryTeacherID)
	}
	_, err = tx.NamedExec(`
		INSERT INTO class (id, name, period, primary_teacher_id, created_at, updated_at)
		VALUES (:id, :name, :period, :primary_teacher_id, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	if err = insertTenures(tx, cls.ID, cls.Tenures); err != nil {
		return school.Class{}, err
	}
	if err = tx.Commit(); err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *schoolRepository) QueryAllClasses() ([]school.Class, error) {
	var rows []classRow
	if err := repo.db.Select(&rows, `SELECT * FROM class ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	var tenRows []tenureRow
	if err := repo.db.Select(&tenRows, `SELECT * FROM class_tenure ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying class tenures")
	}
	byClass := make(map[string][]school.TenureAssignment, len(rows))
	for _, tr := range tenRows {
		byClass[tr.ClassID] = append(byClass[tr.ClassID], tr.toTenure())
	}

	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toClass(byClass[row.ID]))
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(id string) (school.Class, error) {
	var row classRow
	if err := repo.db.Get(&row, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Class{}, school.ErrClassNotFound
		}
		return school.Class{}, errors.Wrap(err, "getting class")
	}

	var tenRows []tenureRow
	err := repo.db.Select(&tenRows, `SELECT * FROM class_tenure WHERE class_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "getting class tenures")
	}
	tenures := make([]school.TenureAssignment, 0, len(tenRows))
	for _, tr := range tenRows {
		tenures = append(tenures, tr.toTenure())
	}
	return row.toClass(tenures), nil
}

func (repo *schoolRepository) UpdateClass(cls school.Class) (school.Class, error) {
	origCls, err := repo.GetClassByID(cls.ID)
	if err != nil {
		return school.Class{}, err
	}
	if cls.Name != "" {
		origCls.Name = cls.Name
	}
	if cls.Period != "" {
		origCls.Period = cls.Period
	}
	if cls.PrimaryTeacherID != "" {
		origCls.PrimaryTeacherID = cls.PrimaryTeacherID
	}
	origCls.Tenures = cls.Tenures
	origCls.UpdatedAt = cls.UpdatedAt

	tx, err := repo.db.Beginx()
	if err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	defer func() { _ = tx.Rollback() }()

	row := classRow{
		ID:        origCls.ID,
		Name:      origCls.Name,
		Period:    origCls.Period,
		UpdatedAt: origCls.UpdatedAt,
	}
	if origCls.PrimaryTeacherID != "" {
		row.PrimaryTeacherID = null.StringFrom(origCls.PrimaryTeacherID)
	}
	_, err = tx.NamedExec(`
		UPDATE class SET name = :name, period = :period, primary_teacher_id = :primary_teacher_id,
		    updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}

	// the incoming tenure set replaces the stored one wholesale
	if _, err = tx.Exec(`DELETE FROM class_tenure WHERE class_id = $1`, origCls.ID); err != nil {
		return school.Class{}, errors.Wrap(err, "updating class tenures")
	}
	if err = insertTenures(tx, origCls.ID, origCls.Tenures); err != nil {
		return school.Class{}, err
	}
	if err = tx.Commit(); err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	return origCls, nil
}

func insertTenures(tx *sqlx.Tx, classID string, tenures []school.TenureAssignment) error {
	for _, ta := range tenures {
		_, err := tx.NamedExec(`
			INSERT INTO class_tenure (id, class_id, teacher_id, start_day, end_day, active, created_at)
			VALUES (:id, :class_id, :teacher_id, :start_day, :end_day, :active, :created_at)`,
			tenureRow{
				ID:        ta.ID,
				ClassID:   classID,
				TeacherID: ta.TeacherID,
				StartDay:  ta.StartDay,
				EndDay:    ta.EndDay,
				Active:    ta.Active,
				CreatedAt: ta.CreatedAt,
			},
		)
		if err != nil {
			return errors.Wrap(err, "inserting class tenure")
		}
	}
	return nil
}

func (repo *schoolRepository) DeleteClassesByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM class WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return nil
}

// Students

func (repo *schoolRepository) CreateStudent(std school.Student) (school.Student, error) {
	_, err := repo.db.NamedExec(`
		INSERT INTO student (id, name, class_id, guardian_name, photo_url, created_at, updated_at)
		VALUES (:id, :name, :class_id, :guardian_name, :photo_url, :created_at, :updated_at)`,
		toStudentRow(std),
	)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func toStudentRow(std school.Student) studentRow {
	row := studentRow{
		ID:           std.ID,
		Name:         std.Name,
		ClassID:      std.ClassID,
		GuardianName: std.GuardianName,
		CreatedAt:    std.CreatedAt,
		UpdatedAt:    std.UpdatedAt,
	}
	if std.PhotoURL != "" {
		row.PhotoURL = null.StringFrom(std.PhotoURL)
	}
	return row
}

func (repo *schoolRepository) QueryAllStudents() ([]school.Student, error) {
	return repo.selectStudents(`SELECT * FROM student ORDER BY name`)
}

func (repo *schoolRepository) selectStudents(query string, args ...interface{}) ([]school.Student, error) {
	var rows []studentRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *schoolRepository) GetStudentByID(id string) (school.Student, error) {
	var row studentRow
	if err := repo.db.Get(&row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Student{}, school.ErrStudentNotFound
		}
		return school.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toStudent(), nil
}

// studentOrderFields whitelists client-requested orderings.
var studentOrderFields = map[string]bool{"name": true, "created_at": true}

func (repo *schoolRepository) FilterStudents(filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error) {
	query := `SELECT * FROM student WHERE 1=1`
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += ` AND (name ILIKE ` + p + ` OR guardian_name ILIKE ` + p + `)`
	}
	if filter.ClassID != "" {
		query += ` AND class_id = ` + arg(filter.ClassID)
	}

	orderings := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if studentOrderFields[ord.Field] {
			orderings = append(orderings, ord.String())
		}
	}
	if len(orderings) == 0 {
		orderings = append(orderings, "name ASC")
	}
	query += ` ORDER BY ` + strings.Join(orderings, ", ")

	return repo.selectStudents(query, args...)
}

func (repo *schoolRepository) GetStudentsByClassID(classID string) ([]school.Student, error) {
	return repo.selectStudents(`SELECT * FROM student WHERE class_id = $1 ORDER BY name`, classID)
}

func (repo *schoolRepository) UpdateStudent(std school.Student) (school.Student, error) {
	origStd, err := repo.GetStudentByID(std.ID)
	if err != nil {
		return school.Student{}, err
	}
	if std.Name != "" {
		origStd.Name = std.Name
	}
	if std.ClassID != "" {
		origStd.ClassID = std.ClassID
	}
	if std.GuardianName != "" {
		origStd.GuardianName = std.GuardianName
	}
	if std.PhotoURL != "" {
		origStd.PhotoURL = std.PhotoURL
	}
	origStd.UpdatedAt = std.UpdatedAt

	_, err = repo.db.NamedExec(`
		UPDATE student SET name = :name, class_id = :class_id, guardian_name = :guardian_name,
		    photo_url = :photo_url, updated_at = :updated_at
		WHERE id = :id`,
		toStudentRow(origStd),
	)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	return origStd, nil
}

func (repo *schoolRepository) DeleteStudentsByID(ids ...string) error {
	if _, err := repo.db.Exec(`DELETE FROM student WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}
