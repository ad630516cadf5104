package user

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
)

// Profile holds the role specific data of a User.
// Exactly one variant exists per Role.
type Profile interface {
	Role() Role
}

type TeacherProfile struct {
	Subjects        []string `json:"subjects"`
	Qualification   string   `json:"qualification"`
	ExperienceYears int      `json:"experience_years"`
	HourlyRate      float64  `json:"hourly_rate"`
	Bio             string   `json:"bio"`
	City            string   `json:"city"`
	IsVerified      bool     `json:"is_verified"`
	Rating          float64  `json:"rating"`
}

type StudentProfile struct {
	Grade           string    `json:"grade"`
	School          string    `json:"school"`
	ParentID        string    `json:"parent_id,omitempty"`
	TotalStreakDays int       `json:"total_streak_days"`
	LastCheckIn     time.Time `json:"last_check_in"` // UTC
}

type ParentProfile struct {
	ChildIDs []string `json:"child_ids"`
}

type AdminProfile struct{}

func (TeacherProfile) Role() Role { return RoleTeacher }
func (StudentProfile) Role() Role { return RoleStudent }
func (ParentProfile) Role() Role  { return RoleParent }
func (AdminProfile) Role() Role   { return RoleAdmin }

// TeachesSubject does a case-insensitive match on the teacher's subjects.
func (p TeacherProfile) TeachesSubject(subject string) bool {
	subject = core.CleanString(subject, true /* lower */)
	for _, s := range p.Subjects {
		if core.CleanString(s, true /* lower */) == subject {
			return true
		}
	}
	return false
}

// NewProfile returns the empty profile variant of `role`.
func NewProfile(role Role) (Profile, error) {
	switch role {
	case RoleTeacher:
		return TeacherProfile{Subjects: []string{}}, nil
	case RoleStudent:
		return StudentProfile{}, nil
	case RoleParent:
		return ParentProfile{ChildIDs: []string{}}, nil
	case RoleAdmin:
		return AdminProfile{}, nil
	default:
		return nil, ErrInvalidRole
	}
}

// DecodeProfile decodes the JSON document of a profile into the variant of `role`.
func DecodeProfile(role Role, data []byte) (Profile, error) {
	if len(data) == 0 || string(data) == "null" {
		return NewProfile(role)
	}
	var (
		profile Profile
		err     error
	)
	switch role {
	case RoleTeacher:
		var p TeacherProfile
		err = json.Unmarshal(data, &p)
		if p.Subjects == nil {
			p.Subjects = []string{}
		}
		profile = p
	case RoleStudent:
		var p StudentProfile
		err = json.Unmarshal(data, &p)
		profile = p
	case RoleParent:
		var p ParentProfile
		err = json.Unmarshal(data, &p)
		if p.ChildIDs == nil {
			p.ChildIDs = []string{}
		}
		profile = p
	case RoleAdmin:
		profile = AdminProfile{}
	default:
		return nil, ErrInvalidRole
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s profile", role)
	}
	return profile, nil
}

// EncodeProfile encodes a profile as a JSON document.
func EncodeProfile(p Profile) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// ProfileDetails are the profile fields a user may edit, one section per role.
type ProfileDetails struct {
	Teacher *TeacherDetails `json:"teacher,omitempty" validate:"omitempty"`
	Student *StudentDetails `json:"student,omitempty" validate:"omitempty"`
}

type TeacherDetails struct {
	Subjects        []string `json:"subjects" validate:"omitempty,dive,notblank"`
	Qualification   string   `json:"qualification"`
	ExperienceYears int      `json:"experience_years" validate:"min=0,max=70"`
	HourlyRate      float64  `json:"hourly_rate" validate:"min=0"`
	Bio             string   `json:"bio" validate:"max=2000"`
	City            string   `json:"city"`
}

type StudentDetails struct {
	Grade  string `json:"grade"`
	School string `json:"school"`
}

// apply merges the section matching the profile's role into `p`.
// Providing a section of another role is an error.
func (d *ProfileDetails) apply(p Profile) (Profile, error) {
	if d == nil {
		return p, nil
	}
	switch prof := p.(type) {
	case TeacherProfile:
		if d.Student != nil {
			return nil, ErrProfileMismatch
		}
		if t := d.Teacher; t != nil {
			if t.Subjects != nil {
				prof.Subjects = core.CleanStrings(t.Subjects)
			}
			prof.Qualification = core.CleanString(t.Qualification)
			prof.ExperienceYears = t.ExperienceYears
			prof.HourlyRate = t.HourlyRate
			prof.Bio = core.CleanString(t.Bio)
			prof.City = core.CleanString(t.City)
		}
		return prof, nil
	case StudentProfile:
		if d.Teacher != nil {
			return nil, ErrProfileMismatch
		}
		if s := d.Student; s != nil {
			prof.Grade = core.CleanString(s.Grade)
			prof.School = core.CleanString(s.School)
		}
		return prof, nil
	default:
		if d.Teacher != nil || d.Student != nil {
			return nil, ErrProfileMismatch
		}
		return p, nil
	}
}
