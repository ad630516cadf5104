package user

import (
	"encoding/json"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/educonnectpro/educonnect/core"
)

// Role is the kind of account a User holds. Each role carries its own Profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

	// SelfServiceRoles are the roles a visitor may sign up with.
	SelfServiceRoles = []Role{RoleTeacher, RoleStudent, RoleParent}

	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) SelfService() bool {
	for _, role := range SelfServiceRoles {
		if r == role {
			return true
		}
	}
	return false
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// Provider is how the account authenticates.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google"
	ProviderPhone    Provider = "phone"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	Provider     Provider  `json:"provider"`
	PasswordHash []byte    `json:"-"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

// UnmarshalJSON decodes the profile variant matching the user's role.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		Profile json.RawMessage `json:"profile"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	profile, err := DecodeProfile(u.Role, aux.Profile)
	if err != nil {
		return err
	}
	u.Profile = profile
	return nil
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	if len(u.PasswordHash) == 0 {
		return ErrInvalidCredentials
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsParent() bool  { return u.Role == RoleParent }

func (u *User) TeacherProfile() (TeacherProfile, bool) {
	p, ok := u.Profile.(TeacherProfile)
	return p, ok
}

func (u *User) StudentProfile() (StudentProfile, bool) {
	p, ok := u.Profile.(StudentProfile)
	return p, ok
}

func (u *User) ParentProfile() (ParentProfile, bool) {
	p, ok := u.Profile.(ParentProfile)
	return p, ok
}

// IsParentOf reports whether the user is a parent with `studentID` linked as a child.
func (u *User) IsParentOf(studentID string) bool {
	p, ok := u.ParentProfile()
	if !ok {
		return false
	}
	for _, id := range p.ChildIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewUser contains information needed to register a new User with email & password.
type NewUser struct {
	Name            string          `json:"name" validate:"required,notblank"`
	Email           string          `json:"email" validate:"required,email"`
	Phone           string          `json:"phone" validate:"omitempty,phone"`
	Password        string          `json:"password" validate:"required"`
	PasswordConfirm string          `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role            `json:"role" validate:"required,selfrole"`
	Details         *ProfileDetails `json:"details,omitempty"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanPhone(nu.Phone)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string          `json:"name"`
	Phone           string          `json:"phone" validate:"omitempty,phone"`
	Password        string          `json:"password"`
	PasswordConfirm string          `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	Details         *ProfileDetails `json:"details,omitempty"`
}

func (uu *UpdateUser) Clean() {
	uu.Name = core.CleanString(uu.Name)
	uu.Phone = core.CleanPhone(uu.Phone)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

// GetFilter selects a single User. The first non-empty field is used.
type GetFilter struct {
	ID    string
	Email string
	Phone string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []Role    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
	IDs         []string  `query:"-"`

	// teacher marketplace
	Subject   string  `query:"subject"`
	City      string  `query:"city"`
	Verified  *bool   `query:"verified"`
	MinRating float64 `query:"min_rating"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() &&
		qf.CreatedTo.IsZero() && qf.IDs == nil && qf.Subject == "" && qf.City == "" &&
		qf.Verified == nil && qf.MinRating == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Subject = core.CleanString(qf.Subject, true /* lower */)
	qf.City = core.CleanString(qf.City)
}

// OrderingFields maps the API ordering fields to their column names.
var OrderingFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"is_active":  "is_active",
	"created_at": "created_at",
	"last_login": "last_login",
	"rating":     "rating",
}
