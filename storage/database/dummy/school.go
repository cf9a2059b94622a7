package dummydb

import (
	"sort"
	"strings"

	"github.com/presencaapp/presenca/core"
	"github.com/presencaapp/presenca/core/school"
)

type schoolRepository struct {
	teachers *teacherTable
	classes  *classTable
	students *studentTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{teachers: db.teacher, classes: db.class, students: db.student}
}

// Teachers

func (repo *schoolRepository) CreateTeacher(tchr school.Teacher) (school.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()
	repo.teachers.table[tchr.ID] = &tchr
	return tchr, nil
}

func (repo *schoolRepository) QueryAllTeachers() ([]school.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.teachers.table))
	for _, t := range repo.teachers.table {
		teachers = append(teachers, *t)
	}
	return teachers, nil
}

func (repo *schoolRepository) GetTeacherByID(id string) (school.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	if tchr, ok := repo.teachers.table[id]; ok {
		return *tchr, nil
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) UpdateTeacher(tchr school.Teacher) (school.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	origTchr, ok := repo.teachers.table[tchr.ID]
	if !ok {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	if tchr.Name != "" {
		origTchr.Name = tchr.Name
	}
	if tchr.Email != "" {
		origTchr.Email = tchr.Email
	}
	origTchr.UpdatedAt = tchr.UpdatedAt
	return *origTchr, nil
}

func (repo *schoolRepository) DeleteTeachersByID(ids ...string) error {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()
	for _, id := range ids {
		delete(repo.teachers.table, id)
	}
	return nil
}

// Classes

func (repo *schoolRepository) CreateClass(cls school.Class) (school.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()
	repo.classes.table[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) QueryAllClasses() ([]school.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	classes := make([]school.Class, 0, len(repo.classes.table))
	for _, c := range repo.classes.table {
		classes = append(classes, *c)
	}
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(id string) (school.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if cls, ok := repo.classes.table[id]; ok {
		return *cls, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) UpdateClass(cls school.Class) (school.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	origCls, ok := repo.classes.table[cls.ID]
	if !ok {
		return school.Class{}, school.ErrClassNotFound
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
	return *origCls, nil
}

func (repo *schoolRepository) DeleteClassesByID(ids ...string) error {
	repo.classes.Lock()
	defer repo.classes.Unlock()
	for _, id := range ids {
		delete(repo.classes.table, id)
	}
	return nil
}

// Students

func (repo *schoolRepository) CreateStudent(std school.Student) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()
	repo.students.table[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) QueryAllStudents() ([]school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()
	return repo.queryStudents(), nil
}

func (repo *schoolRepository) queryStudents() []school.Student {
	students := make([]school.Student, 0, len(repo.students.table))
	for _, s := range repo.students.table {
		students = append(students, *s)
	}
	return students
}

func (repo *schoolRepository) GetStudentByID(id string) (school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if std, ok := repo.students.table[id]; ok {
		return *std, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) FilterStudents(filter school.StudentFilter, ordering ...core.DBOrdering) ([]school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	students := repo.queryStudents()

	if filter.Search != "" {
		var filtered []school.Student
		search := strings.ToLower(filter.Search)
		for _, s := range students {
			if strings.Contains(strings.ToLower(s.Name), search) ||
				strings.Contains(strings.ToLower(s.GuardianName), search) {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}
	if students != nil && filter.ClassID != "" {
		var filtered []school.Student
		for _, s := range students {
			if s.ClassID == filter.ClassID {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}

	orderStudents(students, ordering)
	return students, nil
}

func (repo *schoolRepository) GetStudentsByClassID(classID string) ([]school.Student, error) {
	students, err := repo.FilterStudents(school.StudentFilter{ClassID: classID})
	if err != nil {
		return nil, err
	}
	// stable roster order for seeding sessions
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(std school.Student) (school.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	origStd, ok := repo.students.table[std.ID]
	if !ok {
		return school.Student{}, school.ErrStudentNotFound
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
	return *origStd, nil
}

func (repo *schoolRepository) DeleteStudentsByID(ids ...string) error {
	repo.students.Lock()
	defer repo.students.Unlock()
	for _, id := range ids {
		delete(repo.students.table, id)
	}
	return nil
}

func orderStudents(students []school.Student, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(students, func(a, b int) bool {
			var less bool
			switch ord.Field {
			case "name":
				less = students[a].Name < students[b].Name
			case "created_at":
				less = students[a].CreatedAt.Before(students[b].CreatedAt)
			default:
				return false
			}
			if !ord.Ascending {
				return !less && !equalStudents(students[a], students[b], ord.Field)
			}
			return less
		})
	}
}

func equalStudents(a, b school.Student, field string) bool {
	switch field {
	case "name":
		return a.Name == b.Name
	case "created_at":
		return a.CreatedAt.Equal(b.CreatedAt)
	}
	return false
}
