package inmemdb

import (
	"sync"

	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/support"
	"github.com/educonnectpro/educonnect/core/user"
)

type (
	DB struct {
		user      *userTable
		classroom *classroomTables
		fee       *feeTable
		booking   *bookingTable
		support   *ticketTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	classroomTables struct {
		sync.RWMutex
		classes       map[string]*classroom.Class
		enrollments   map[string]*classroom.Enrollment
		announcements map[string]*classroom.Announcement
		materials     map[string]*classroom.StudyMaterial
		performances  map[string]*classroom.Performance
	}

	feeTable struct {
		sync.RWMutex
		table map[string]*fee.Fee
	}

	bookingTable struct {
		sync.RWMutex
		table map[string]*booking.HomeBooking
	}

	ticketTable struct {
		sync.RWMutex
		table map[string]*support.Ticket
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		classroom: &classroomTables{
			classes:       make(map[string]*classroom.Class),
			enrollments:   make(map[string]*classroom.Enrollment),
			announcements: make(map[string]*classroom.Announcement),
			materials:     make(map[string]*classroom.StudyMaterial),
			performances:  make(map[string]*classroom.Performance),
		},
		fee:     &feeTable{table: make(map[string]*fee.Fee)},
		booking: &bookingTable{table: make(map[string]*booking.HomeBooking)},
		support: &ticketTable{table: make(map[string]*support.Ticket)},
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
