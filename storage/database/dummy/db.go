package dummydb

import (
	"sync"

	"github.com/presencaapp/presenca/core/attendance"
	"github.com/presencaapp/presenca/core/school"
	"github.com/presencaapp/presenca/core/user"
)

type (
	DB struct {
		user       *userTable
		teacher    *teacherTable
		class      *classTable
		student    *studentTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	teacherTable struct {
		sync.RWMutex
		table map[string]*school.Teacher
	}

	classTable struct {
		sync.RWMutex
		table map[string]*school.Class
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*school.Student
	}

	// attendanceTable holds the one flat record collection across all
	// classes and days. Reads take a full snapshot, writes replace the
	// whole collection; last writer wins.
	attendanceTable struct {
		sync.RWMutex
		records []attendance.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		teacher:    &teacherTable{table: make(map[string]*school.Teacher)},
		class:      &classTable{table: make(map[string]*school.Class)},
		student:    &studentTable{table: make(map[string]*school.Student)},
		attendance: &attendanceTable{},
	}
	return db, nil
}
