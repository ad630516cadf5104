package user

import (
	"context"
	"hash/fnv"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
)

var (
	// errors
	ErrNotFound              = errors.Wrap(core.ErrNotFound, "user")
	ErrEmailExists           = errors.New("a user with this email already exists")
	ErrPhoneExists           = errors.New("a user with this phone number already exists")
	ErrInvalidRole           = errors.New("invalid role")
	ErrProfileMismatch       = errors.New("profile details do not match the user's role")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDeactivated    = errors.New("account deactivated")
	ErrInvalidOTP            = errors.New("invalid or expired verification code")
	ErrInvalidGoogleToken    = errors.New("invalid google credential")
	ErrGoogleEmailUnverified = errors.New("google account email is not verified")
	ErrNotAStudent           = errors.New("user is not a student")
	ErrChildAlreadyLinked    = errors.New("student is already linked to a parent")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrPhoneExists when another user holds them.
		CheckUniqueness(ctx context.Context, email, phone string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Email or User.Phone.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error
	}

	// OTPVerifier sends and checks one-time codes delivered by SMS.
	OTPVerifier interface {
		SendCode(ctx context.Context, phone string) error
		CheckCode(ctx context.Context, phone, code string) (bool, error)
	}

	// GoogleIdentity is the verified content of a Google ID token.
	GoogleIdentity struct {
		Subject       string
		Email         string
		EmailVerified bool
		Name          string
	}

	// IdentityVerifier verifies Google sign-in ID tokens.
	IdentityVerifier interface {
		VerifyIDToken(ctx context.Context, idToken string) (GoogleIdentity, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		otp     OTPVerifier
		google  IdentityVerifier
		tokens  tokenGenerator
		locks   *userLocks
	}

	// userLocks serializes the modifications of a user, striped by ID.
	userLocks [64]sync.Mutex
)

func (l *userLocks) get(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &l[h.Sum32()%uint32(len(l))]
}

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	otp OTPVerifier,
	google IdentityVerifier,
	conf *core.Config,
) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		otp:     otp,
		google:  google,
		tokens: tokenGenerator{
			secretKey: []byte(conf.SecretKey),
			timeout:   conf.Server.PasswordResetTimeoutDelta,
		},
		locks: new(userLocks),
	}
}

// CheckUniqueness maps repository uniqueness errors to field validation errors.
func (svc *Service) CheckUniqueness(ctx context.Context, email, phone string, excludedIDs ...string) error {
	if err := svc.repo.CheckUniqueness(ctx, email, phone, excludedIDs...); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrPhoneExists:
			field = "phone"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func newUser(name, email, phone string, role Role, provider Provider) (User, error) {
	profile, err := NewProfile(role)
	if err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	return User{
		Name:      name,
		Email:     email,
		Phone:     phone,
		Role:      role,
		IsActive:  true,
		Provider:  provider,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Register creates an email & password account. `nu` must have been validated.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if !nu.Role.SelfService() {
		return User{}, core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: selfRoleText})
	}
	if err := svc.CheckUniqueness(ctx, nu.Email, nu.Phone); err != nil {
		return User{}, err
	}

	usr, err := newUser(nu.Name, nu.Email, nu.Phone, nu.Role, ProviderPassword)
	if err != nil {
		return User{}, err
	}
	if usr.Profile, err = nu.Details.apply(usr.Profile); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "details", Error: err.Error()})
	}
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Create is used by administrators to add accounts of any role.
func (svc *Service) Create(ctx context.Context, name, email, pwd string, role Role) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.CheckUniqueness(ctx, email, ""); err != nil {
		return User{}, err
	}
	usr, err := newUser(core.CleanString(name), email, "", role, ProviderPassword)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks email & password credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return svc.login(ctx, usr)
}

func (svc *Service) login(ctx context.Context, usr User) (User, error) {
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err := svc.Modify(ctx, usr.ID, func(usr *User) error {
		usr.LastLogin = time.Now().UTC()
		return nil
	})
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

// RequestOTP sends a verification code to `phone`.
func (svc *Service) RequestOTP(ctx context.Context, phone string) error {
	return errors.Wrap(svc.otp.SendCode(ctx, core.CleanPhone(phone)), "sending verification code")
}

// VerifyOTP signs in the owner of `phone`, creating the account on first sign in.
// `role` and `name` are only used for new accounts.
func (svc *Service) VerifyOTP(ctx context.Context, phone, code string, role Role, name string) (User, error) {
	phone = core.CleanPhone(phone)
	ok, err := svc.otp.CheckCode(ctx, phone, core.CleanString(code))
	if err != nil {
		return User{}, errors.Wrap(err, "checking verification code")
	}
	if !ok {
		return User{}, ErrInvalidOTP
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{Phone: phone})
	if err == nil {
		return svc.login(ctx, usr)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return User{}, errors.Wrap(err, "finding user by phone")
	}

	if role == "" {
		role = RoleStudent
	}
	if !role.SelfService() {
		return User{}, core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: selfRoleText})
	}
	if name = core.CleanString(name); name == "" {
		name = phone
	}
	if usr, err = newUser(name, "", phone, role, ProviderPhone); err != nil {
		return User{}, err
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	return svc.login(ctx, usr)
}

// SignInWithGoogle signs in the owner of a Google ID token, creating the account on first sign in.
func (svc *Service) SignInWithGoogle(ctx context.Context, idToken string, role Role) (User, error) {
	identity, err := svc.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return User{}, ErrInvalidGoogleToken
	}
	if !identity.EmailVerified {
		return User{}, ErrGoogleEmailUnverified
	}

	usr, err := svc.GetByEmail(ctx, identity.Email)
	if err == nil {
		return svc.login(ctx, usr)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	if role == "" {
		role = RoleStudent
	}
	if !role.SelfService() {
		return User{}, core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: selfRoleText})
	}
	name := core.CleanString(identity.Name)
	if name == "" {
		name = identity.Email
	}
	if usr, err = newUser(name, core.CleanString(identity.Email, true /* lower */), "", role, ProviderGoogle); err != nil {
		return User{}, err
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	return svc.login(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, core.CleanOrderings(ordering, OrderingFields))
}

// Teachers searches the marketplace: active teachers, best rated first unless ordered otherwise.
func (svc *Service) Teachers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	active := true
	filter.Roles = []Role{RoleTeacher}
	filter.IsActive = &active
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "rating"}, {Field: "name", Ascending: true}}
	}
	return svc.Query(ctx, &filter, ordering)
}

// GetTeacher returns an active teacher.
func (svc *Service) GetTeacher(ctx context.Context, id string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsTeacher() || !usr.IsActive {
		return User{}, ErrNotFound
	}
	return usr, nil
}

// Update modifies the editable fields of a user's account & profile.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	uu.Clean()
	if uu.Phone != "" && uu.Phone != usr.Phone {
		if err := svc.CheckUniqueness(ctx, "", uu.Phone, usr.ID); err != nil {
			return User{}, err
		}
	}
	return svc.Modify(ctx, usr.ID, func(usr *User) error {
		if uu.Phone != "" {
			usr.Phone = uu.Phone
		}
		if uu.Name != "" {
			usr.Name = uu.Name
		}
		profile, err := uu.Details.apply(usr.Profile)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "details", Error: err.Error()})
		}
		usr.Profile = profile
		if uu.Password != "" {
			if err = usr.SetPassword(uu.Password); err != nil {
				return errors.Wrap(err, "setting password")
			}
		}
		usr.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Modify applies `fn` to the stored user `id` then saves it; nothing is saved when `fn` fails.
// Modifications of the same user are serialized.
func (svc *Service) Modify(ctx context.Context, id string, fn func(usr *User) error) (User, error) {
	mu := svc.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if err = fn(&usr); err != nil {
		return User{}, err
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// SetActive activates or deactivates an account.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	return svc.Modify(ctx, id, func(usr *User) error {
		usr.IsActive = active
		usr.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// VerifyTeacher sets the verified badge of a teacher.
func (svc *Service) VerifyTeacher(ctx context.Context, id string, verified bool) (User, error) {
	return svc.Modify(ctx, id, func(usr *User) error {
		profile, ok := usr.TeacherProfile()
		if !ok {
			return core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "id", Error: "user is not a teacher"})
		}
		profile.IsVerified = verified
		usr.Profile = profile
		usr.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// LinkChild links the student account owning `studentEmail` to a parent.
func (svc *Service) LinkChild(ctx context.Context, parent User, studentEmail string) (User, error) {
	if _, ok := parent.ParentProfile(); !ok {
		return User{}, core.ErrPermissionDenied
	}
	child, err := svc.GetByEmail(ctx, studentEmail)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "student_email", Error: "no student with this email"})
		}
		return User{}, errors.Wrap(err, "finding student by email")
	}

	_, err = svc.Modify(ctx, child.ID, func(child *User) error {
		childProfile, ok := child.StudentProfile()
		if !ok {
			return core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "student_email", Error: ErrNotAStudent.Error()})
		}
		if childProfile.ParentID != "" && childProfile.ParentID != parent.ID {
			return core.NewValidationError(ErrChildAlreadyLinked, core.FieldError{Field: "student_email", Error: ErrChildAlreadyLinked.Error()})
		}
		childProfile.ParentID = parent.ID
		child.Profile = childProfile
		child.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return User{}, err
		}
		return User{}, errors.Wrap(err, "saving child")
	}

	return svc.Modify(ctx, parent.ID, func(parent *User) error {
		parentProfile, ok := parent.ParentProfile()
		if !ok {
			return core.ErrPermissionDenied
		}
		for _, id := range parentProfile.ChildIDs {
			if id == child.ID {
				return nil
			}
		}
		parentProfile.ChildIDs = append(parentProfile.ChildIDs, child.ID)
		parent.Profile = parentProfile
		parent.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Children returns the students linked to a parent.
func (svc *Service) Children(ctx context.Context, parent User) ([]User, error) {
	profile, ok := parent.ParentProfile()
	if !ok {
		return nil, core.ErrPermissionDenied
	}
	if len(profile.ChildIDs) == 0 {
		return []User{}, nil
	}
	return svc.repo.QueryUsers(ctx, &QueryFilter{IDs: profile.ChildIDs}, nil)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

// RequestPasswordReset emails a password reset link to the owner of `email`.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrAccountDeactivated
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	})
}

// ResetPassword sets a new password given a valid reset token.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidValue := "invalid value"
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "uid", Error: invalidValue})
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewValidationError(err, core.FieldError{Field: "uid", Error: invalidValue})
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: invalidValue})
	}
	_, err = svc.Modify(ctx, usr.ID, func(usr *User) error {
		usr.UpdatedAt = time.Now().UTC()
		return errors.Wrap(usr.SetPassword(data.Password), "setting password")
	})
	return errors.Wrap(err, "saving user")
}

// MakePasswordResetToken is used by the admin CLI and tests.
func (svc *Service) MakePasswordResetToken(usr User) string {
	return svc.tokens.makeToken(usr)
}
