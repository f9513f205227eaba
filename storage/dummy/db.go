// Package dummydb is an in-memory database used in tests and local hacking.
package dummydb

import (
	"sync"

	"github.com/mutabaa-app/mutabaa/core/center"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
	"github.com/mutabaa-app/mutabaa/core/user"
)

type (
	DB struct {
		student *studentTable
		session *sessionTable
		record  *recordTable
		center  *centerTable
		user    *userTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.Session
	}

	recordTable struct {
		sync.RWMutex
		table map[string]*record.Record
	}

	centerTable struct {
		sync.RWMutex
		table map[string]*center.Center
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
)

func Open() (*DB, error) {
	db := &DB{
		student: &studentTable{table: make(map[string]*student.Student)},
		session: &sessionTable{table: make(map[string]*session.Session)},
		record:  &recordTable{table: make(map[string]*record.Record)},
		center:  &centerTable{table: make(map[string]*center.Center)},
		user:    &userTable{table: make(map[string]*user.User)},
	}
	return db, nil
}
