package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/presencaapp/presenca/core"
)

// Class periods
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodFullDay   = "fullday"
)

var AllPeriods = []string{PeriodMorning, PeriodAfternoon, PeriodFullDay}

type Teacher struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// TenureAssignment grants a teacher authority over a class for an inclusive
// window of calendar days. A teacher may hold several windows on the same
// class (e.g. a leave replacement that was later extended).
type TenureAssignment struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	StartDay  string    `json:"start_day"` // "YYYY-MM-DD"
	EndDay    string    `json:"end_day"`   // "YYYY-MM-DD", inclusive
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Covers reports whether day falls within this assignment's window,
// inclusive on both ends. Calendar days compare lexicographically in
// "YYYY-MM-DD" form. Covers does not consider Active.
func (ta TenureAssignment) Covers(day string) bool {
	return ta.StartDay <= day && day <= ta.EndDay
}

type Class struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Period           string             `json:"period"`
	PrimaryTeacherID string             `json:"primary_teacher_id,omitempty"`
	Tenures          []TenureAssignment `json:"tenures"`
	CreatedAt        time.Time          `json:"created_at"` // UTC
	UpdatedAt        time.Time          `json:"updated_at"` // UTC
}

type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ClassID      string    `json:"class_id"`
	GuardianName string    `json:"guardian_name,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewTeacher contains information needed to create a new Teacher.
type NewTeacher struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	return validate.Struct(nt)
}

// UpdateTeacher defines what information may be provided to modify an existing Teacher.
type UpdateTeacher struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (ut *UpdateTeacher) Validate(origTchr Teacher, validate *validator.Validate) error {
	name := core.CleanString(ut.Name)
	if name != "" {
		ut.Name = name
	} else {
		ut.Name = origTchr.Name
	}

	email := core.CleanString(ut.Email, true /* lower */)
	if email != "" {
		ut.Email = email
	} else {
		ut.Email = origTchr.Email
	}
	return validate.Struct(ut)
}

// NewTenureAssignment is a tenure window nested in a class payload.
type NewTenureAssignment struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid4"`
	StartDay  string `json:"start_day" validate:"required,isoday"`
	EndDay    string `json:"end_day" validate:"required,isoday"`
	Active    *bool  `json:"active"`
}

func (nta NewTenureAssignment) active() bool {
	if nta.Active == nil {
		return true
	}
	return *nta.Active
}

// NewClass contains information needed to create a new Class.
// Tenure assignments are managed as part of the class payload.
type NewClass struct {
	Name             string                `json:"name" validate:"required"`
	Period           string                `json:"period" validate:"required,period"`
	PrimaryTeacherID string                `json:"primary_teacher_id" validate:"omitempty,uuid4"`
	Tenures          []NewTenureAssignment `json:"tenures" validate:"omitempty,dive"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Period = core.CleanString(nc.Period, true /* lower */)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// A non-nil Tenures replaces the class's tenure set wholesale.
type UpdateClass struct {
	Name             string                 `json:"name"`
	Period           string                 `json:"period" validate:"omitempty,period"`
	PrimaryTeacherID string                 `json:"primary_teacher_id" validate:"omitempty,uuid4"`
	Tenures          *[]NewTenureAssignment `json:"tenures" validate:"omitempty,dive"`
}

func (uc *UpdateClass) Validate(origCls Class, validate *validator.Validate) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = origCls.Name
	}

	period := core.CleanString(uc.Period, true /* lower */)
	if period != "" {
		uc.Period = period
	} else {
		uc.Period = origCls.Period
	}
	return validate.Struct(uc)
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	Name         string `json:"name" validate:"required"`
	ClassID      string `json:"class_id" validate:"required,uuid4"`
	GuardianName string `json:"guardian_name"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,url"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name         string `json:"name"`
	ClassID      string `json:"class_id" validate:"omitempty,uuid4"`
	GuardianName string `json:"guardian_name"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,url"`
}

func (us *UpdateStudent) Validate(origStd Student, validate *validator.Validate) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = origStd.Name
	}

	if us.ClassID == "" {
		us.ClassID = origStd.ClassID
	}
	us.GuardianName = core.CleanString(us.GuardianName)
	if us.GuardianName == "" {
		us.GuardianName = origStd.GuardianName
	}
	if us.PhotoURL == "" {
		us.PhotoURL = origStd.PhotoURL
	}
	return validate.Struct(us)
}

type StudentFilter struct {
	Search  string `query:"search"`
	ClassID string `query:"class_id"`
}

func (sf *StudentFilter) IsEmpty() bool {
	return sf.Search == "" && sf.ClassID == ""
}

func (sf *StudentFilter) Clean() {
	sf.Search = core.CleanString(sf.Search)
}
