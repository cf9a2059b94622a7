package school

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/presencaapp/presenca/core"
)

var (
	// errors
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrStudentNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateTeacher(tchr Teacher) (Teacher, error)
		QueryAllTeachers() ([]Teacher, error)
		GetTeacherByID(id string) (Teacher, error)
		UpdateTeacher(tchr Teacher) (Teacher, error)
		DeleteTeachersByID(ids ...string) error

		// CreateClass and UpdateClass persist cls.Tenures along with the class;
		// UpdateClass replaces the stored tenure set with cls.Tenures.
		CreateClass(cls Class) (Class, error)
		QueryAllClasses() ([]Class, error)
		GetClassByID(id string) (Class, error)
		UpdateClass(cls Class) (Class, error)
		DeleteClassesByID(ids ...string) error

		CreateStudent(std Student) (Student, error)
		QueryAllStudents() ([]Student, error)
		GetStudentByID(id string) (Student, error)
		// FilterStudents applies AND operation on available StudentFilter fields.
		// StudentFilter.Search does a case-insensitive match on Student.Name or Student.GuardianName.
		FilterStudents(filter StudentFilter, ordering ...core.DBOrdering) ([]Student, error)
		GetStudentsByClassID(classID string) ([]Student, error)
		UpdateStudent(std Student) (Student, error)
		DeleteStudentsByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Teachers

func (svc *Service) CreateTeacher(nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	tchr := Teacher{
		ID:        uuid.New().String(),
		Name:      nt.Name,
		Email:     nt.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateTeacher(tchr)
}

func (svc *Service) QueryAllTeachers() ([]Teacher, error) {
	return svc.repo.QueryAllTeachers()
}

func (svc *Service) GetTeacherByID(id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(id)
}

func (svc *Service) UpdateTeacher(id string, ut UpdateTeacher) (Teacher, error) {
	tchr := Teacher{
		ID:        id,
		Name:      ut.Name,
		Email:     ut.Email,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateTeacher(tchr)
}

func (svc *Service) DeleteTeachers(ids ...string) error {
	return svc.repo.DeleteTeachersByID(ids...)
}

// Classes

func (svc *Service) CreateClass(nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		ID:               uuid.New().String(),
		Name:             nc.Name,
		Period:           nc.Period,
		PrimaryTeacherID: nc.PrimaryTeacherID,
		Tenures:          newTenures(nc.Tenures, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateClass(cls)
}

func (svc *Service) QueryAllClasses() ([]Class, error) {
	return svc.repo.QueryAllClasses()
}

func (svc *Service) GetClassByID(id string) (Class, error) {
	return svc.repo.GetClassByID(id)
}

func (svc *Service) UpdateClass(origCls Class, uc UpdateClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		ID:               origCls.ID,
		Name:             uc.Name,
		Period:           uc.Period,
		PrimaryTeacherID: uc.PrimaryTeacherID,
		Tenures:          origCls.Tenures,
		CreatedAt:        origCls.CreatedAt,
		UpdatedAt:        now,
	}
	if cls.PrimaryTeacherID == "" {
		cls.PrimaryTeacherID = origCls.PrimaryTeacherID
	}
	if uc.Tenures != nil {
		cls.Tenures = newTenures(*uc.Tenures, now)
	}
	return svc.repo.UpdateClass(cls)
}

func (svc *Service) DeleteClasses(ids ...string) error {
	return svc.repo.DeleteClassesByID(ids...)
}

func newTenures(nts []NewTenureAssignment, now time.Time) []TenureAssignment {
	if nts == nil {
		return nil
	}
	tenures := make([]TenureAssignment, 0, len(nts))
	for _, nta := range nts {
		tenures = append(tenures, TenureAssignment{
			ID:        uuid.New().String(),
			TeacherID: nta.TeacherID,
			StartDay:  nta.StartDay,
			EndDay:    nta.EndDay,
			Active:    nta.active(),
			CreatedAt: now,
		})
	}
	return tenures
}

// Students

func (svc *Service) CreateStudent(ns NewStudent) (Student, error) {
	if _, err := svc.repo.GetClassByID(ns.ClassID); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	std := Student{
		ID:           uuid.New().String(),
		Name:         ns.Name,
		ClassID:      ns.ClassID,
		GuardianName: ns.GuardianName,
		PhotoURL:     ns.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateStudent(std)
}

func (svc *Service) QueryAllStudents() ([]Student, error) {
	return svc.repo.QueryAllStudents()
}

func (svc *Service) GetStudentByID(id string) (Student, error) {
	return svc.repo.GetStudentByID(id)
}

func (svc *Service) FilterStudents(filter StudentFilter, ordering ...core.DBOrdering) ([]Student, error) {
	return svc.repo.FilterStudents(filter, ordering...)
}

func (svc *Service) GetStudentsByClassID(classID string) ([]Student, error) {
	return svc.repo.GetStudentsByClassID(classID)
}

func (svc *Service) UpdateStudent(id string, us UpdateStudent) (Student, error) {
	std := Student{
		ID:           id,
		Name:         us.Name,
		ClassID:      us.ClassID,
		GuardianName: us.GuardianName,
		PhotoURL:     us.PhotoURL,
		UpdatedAt:    time.Now().UTC(),
	}
	return svc.repo.UpdateStudent(std)
}

func (svc *Service) DeleteStudents(ids ...string) error {
	return svc.repo.DeleteStudentsByID(ids...)
}
