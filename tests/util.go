package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/presencaapp/presenca/core/attendance"
	"github.com/presencaapp/presenca/core/school"
	"github.com/presencaapp/presenca/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateTeacherUser creates an active account bound to a roster teacher.
func CreateTeacherUser(t *testing.T, repo user.Repository, name, uname, email, pwd, teacherID string) user.User {
	t.Helper()

	usr := CreateUser(t, repo, name, uname, email, pwd, []string{user.RoleTeacher}, true)
	usr.TeacherID = teacherID
	usr, err := repo.UpdateUser(usr, nil)
	if err != nil {
		t.Fatalf("CreateTeacherUser() failed: %v", err)
	}
	return usr
}

func CreateTeacher(t *testing.T, repo school.Repository, name, email string) school.Teacher {
	t.Helper()

	now := time.Now().UTC()
	tchr, err := repo.CreateTeacher(school.Teacher{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

// Tenure builds an active tenure assignment window for use in CreateClass.
func Tenure(teacherID, startDay, endDay string) school.TenureAssignment {
	return school.TenureAssignment{
		ID:        uuid.New().String(),
		TeacherID: teacherID,
		StartDay:  startDay,
		EndDay:    endDay,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

func CreateClass(t *testing.T, repo school.Repository, name, period string, tenures ...school.TenureAssignment) school.Class {
	t.Helper()

	now := time.Now().UTC()
	cls := school.Class{
		ID:        uuid.New().String(),
		Name:      name,
		Period:    period,
		Tenures:   tenures,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(tenures) > 0 {
		cls.PrimaryTeacherID = tenures[0].TeacherID
	}
	cls, err := repo.CreateClass(cls)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo school.Repository, name, classID string) school.Student {
	t.Helper()

	now := time.Now().UTC()
	std, err := repo.CreateStudent(school.Student{
		ID:        uuid.New().String(),
		Name:      name,
		ClassID:   classID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateRecord(t *testing.T, repo attendance.Repository, day, studentID string, status attendance.Status, note string) attendance.Record {
	t.Helper()

	rec := attendance.Record{Day: day, StudentID: studentID, Status: status, Note: note}
	if err := repo.UpsertBatch([]attendance.Record{rec}); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}
