package classroom

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

var (
	// errors
	ErrNotFound         = errors.Wrap(core.ErrNotFound, "class")
	ErrInvalidClassCode = errors.New("invalid class code")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this class")
	ErrNotEnrolled      = errors.New("student is not enrolled in this class")
	ErrCodeGeneration   = errors.New("could not generate a unique class code")
)

const maxCodeAttempts = 5

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, filter ClassFilter) (Class, error)
		QueryClasses(ctx context.Context, query ClassQuery) ([]Class, error)
		ClassCodeExists(ctx context.Context, code string) (bool, error)
		// DeleteClass also deletes the class enrollments, announcements, materials and performances.
		DeleteClass(ctx context.Context, id string) error

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)

		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		// QueryAnnouncements returns the matching announcements, newest first.
		QueryAnnouncements(ctx context.Context, filter AnnouncementFilter) ([]Announcement, error)

		CreateMaterial(ctx context.Context, mat StudyMaterial) (StudyMaterial, error)
		QueryMaterials(ctx context.Context, filter MaterialFilter) ([]StudyMaterial, error)

		CreatePerformance(ctx context.Context, perf Performance) (Performance, error)
		// QueryPerformances returns the matching performances, most recent first.
		QueryPerformances(ctx context.Context, filter PerformanceFilter) ([]Performance, error)
	}

	// Users looks up accounts. Satisfied by *user.Service.
	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	Service struct {
		repo  Repository
		users Users
	}
)

func NewService(repo Repository, users Users) *Service {
	return &Service{repo: repo, users: users}
}

// CreateClass creates a class owned by `teacher` with a unique join code.
func (svc *Service) CreateClass(ctx context.Context, teacher user.User, nc NewClass) (Class, error) {
	if !teacher.IsTeacher() {
		return Class{}, core.ErrPermissionDenied
	}
	nc.Clean()
	code, err := svc.uniqueCode(ctx)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, Class{
		ID:          uuid.New().String(),
		TeacherID:   teacher.ID,
		Name:        nc.Name,
		Subject:     nc.Subject,
		Grade:       nc.Grade,
		Description: nc.Description,
		Schedule:    nc.Schedule,
		MonthlyFee:  nc.MonthlyFee,
		Code:        code,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := GenerateClassCode()
		if err != nil {
			return "", errors.Wrap(err, "generating class code")
		}
		exists, err := svc.repo.ClassCodeExists(ctx, code)
		if err != nil {
			return "", errors.Wrap(err, "checking class code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGeneration
}

// Classes returns the classes of `usr`: owned by a teacher, joined by a student,
// joined by the children of a parent, or all of them for an admin.
func (svc *Service) Classes(ctx context.Context, usr user.User) ([]Class, error) {
	switch usr.Role {
	case user.RoleAdmin:
		return svc.repo.QueryClasses(ctx, ClassQuery{})
	case user.RoleTeacher:
		return svc.repo.QueryClasses(ctx, ClassQuery{TeacherID: usr.ID})
	case user.RoleStudent:
		return svc.repo.QueryClasses(ctx, ClassQuery{StudentID: usr.ID})
	case user.RoleParent:
		profile, _ := usr.ParentProfile()
		var classes []Class
		seen := make(map[string]bool)
		for _, childID := range profile.ChildIDs {
			childClasses, err := svc.repo.QueryClasses(ctx, ClassQuery{StudentID: childID})
			if err != nil {
				return nil, err
			}
			for _, cls := range childClasses {
				if !seen[cls.ID] {
					seen[cls.ID] = true
					classes = append(classes, cls)
				}
			}
		}
		if classes == nil {
			classes = []Class{}
		}
		return classes, nil
	default:
		return []Class{}, nil
	}
}

func (svc *Service) classIDs(ctx context.Context, usr user.User) ([]string, error) {
	classes, err := svc.Classes(ctx, usr)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(classes))
	for i, cls := range classes {
		ids[i] = cls.ID
	}
	return ids, nil
}

func (svc *Service) isEnrolled(ctx context.Context, classID string, studentIDs ...string) (bool, error) {
	if len(studentIDs) == 0 {
		return false, nil
	}
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{ClassID: classID, StudentIDs: studentIDs})
	if err != nil {
		return false, errors.Wrap(err, "querying enrollments")
	}
	return len(enrs) > 0, nil
}

// canView reports whether `usr` may read the content of `cls`.
func (svc *Service) canView(ctx context.Context, usr user.User, cls Class) (bool, error) {
	switch usr.Role {
	case user.RoleAdmin:
		return true, nil
	case user.RoleTeacher:
		return cls.TeacherID == usr.ID, nil
	case user.RoleStudent:
		return svc.isEnrolled(ctx, cls.ID, usr.ID)
	case user.RoleParent:
		profile, _ := usr.ParentProfile()
		return svc.isEnrolled(ctx, cls.ID, profile.ChildIDs...)
	default:
		return false, nil
	}
}

func isOwner(usr user.User, cls Class) bool {
	return usr.IsTeacher() && cls.TeacherID == usr.ID
}

// GetClass returns a class `usr` may view.
func (svc *Service) GetClass(ctx context.Context, usr user.User, id string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, ClassFilter{ID: id})
	if err != nil {
		return Class{}, err
	}
	ok, err := svc.canView(ctx, usr, cls)
	if err != nil {
		return Class{}, err
	}
	if !ok {
		return Class{}, core.ErrPermissionDenied
	}
	return cls, nil
}

// OwnedClass returns a class `usr` owns, or any class for an admin.
func (svc *Service) OwnedClass(ctx context.Context, usr user.User, id string) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, ClassFilter{ID: id})
	if err != nil {
		return Class{}, err
	}
	if !isOwner(usr, cls) && !usr.IsAdmin() {
		return Class{}, core.ErrPermissionDenied
	}
	return cls, nil
}

func (svc *Service) DeleteClass(ctx context.Context, usr user.User, id string) error {
	if _, err := svc.OwnedClass(ctx, usr, id); err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, id)
}

// Enroll joins `student` to the class identified by `code`.
func (svc *Service) Enroll(ctx context.Context, student user.User, code string) (Class, error) {
	if !student.IsStudent() {
		return Class{}, core.ErrPermissionDenied
	}
	code = NormalizeClassCode(code)
	if len(code) != codeLength {
		return Class{}, ErrInvalidClassCode
	}
	cls, err := svc.repo.GetClass(ctx, ClassFilter{Code: code})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Class{}, ErrInvalidClassCode
		}
		return Class{}, err
	}
	enrolled, err := svc.isEnrolled(ctx, cls.ID, student.ID)
	if err != nil {
		return Class{}, err
	}
	if enrolled {
		return Class{}, ErrAlreadyEnrolled
	}
	_, err = svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:         uuid.New().String(),
		ClassID:    cls.ID,
		StudentID:  student.ID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		return Class{}, errors.Wrap(err, "creating enrollment")
	}
	return cls, nil
}

// IsEnrolled reports whether `studentID` is enrolled in `classID`.
func (svc *Service) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return svc.isEnrolled(ctx, classID, studentID)
}

// Roster returns the students enrolled in a class owned by `usr`.
func (svc *Service) Roster(ctx context.Context, usr user.User, classID string) ([]user.User, error) {
	if _, err := svc.OwnedClass(ctx, usr, classID); err != nil {
		return nil, err
	}
	enrs, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{ClassID: classID})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	if len(enrs) == 0 {
		return []user.User{}, nil
	}
	ids := make([]string, len(enrs))
	for i, enr := range enrs {
		ids[i] = enr.StudentID
	}
	return svc.users.Query(ctx, &user.QueryFilter{IDs: ids}, []core.DBOrdering{{Field: "name", Ascending: true}})
}

// PostAnnouncement publishes an announcement to a class owned by `author`.
// Global announcements (no class) are reserved to admins.
func (svc *Service) PostAnnouncement(ctx context.Context, author user.User, na NewAnnouncement) (Announcement, error) {
	na.Clean()
	if na.ClassID == "" {
		if !author.IsAdmin() {
			return Announcement{}, core.ErrPermissionDenied
		}
	} else if _, err := svc.OwnedClass(ctx, author, na.ClassID); err != nil {
		return Announcement{}, err
	}

	now := time.Now().UTC()
	if !na.ExpiresAt.IsZero() && !na.ExpiresAt.After(now) {
		return Announcement{}, core.NewValidationError(nil, core.FieldError{Field: "expires_at", Error: "must be in the future"})
	}
	return svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:            uuid.New().String(),
		ClassID:       na.ClassID,
		AuthorID:      author.ID,
		Title:         na.Title,
		Content:       na.Content,
		ShowInMarquee: na.ShowInMarquee,
		ExpiresAt:     na.ExpiresAt.UTC(),
		CreatedAt:     now,
	})
}

func (svc *Service) visibleAnnouncements(ctx context.Context, usr user.User, marqueeOnly bool) ([]Announcement, error) {
	filter := AnnouncementFilter{IncludeGlobal: true, MarqueeOnly: marqueeOnly}
	if !usr.IsAdmin() {
		ids, err := svc.classIDs(ctx, usr)
		if err != nil {
			return nil, err
		}
		filter.ClassIDs = ids
	}
	return svc.repo.QueryAnnouncements(ctx, filter)
}

// Announcements returns the global announcements and those of the classes of `usr`, newest first.
func (svc *Service) Announcements(ctx context.Context, usr user.User) ([]Announcement, error) {
	return svc.visibleAnnouncements(ctx, usr, false)
}

// Marquee returns the unexpired marquee announcements visible to `usr`, newest first.
func (svc *Service) Marquee(ctx context.Context, usr user.User, now time.Time) ([]Announcement, error) {
	anns, err := svc.visibleAnnouncements(ctx, usr, true)
	if err != nil {
		return nil, err
	}
	return FilterMarquee(anns, now), nil
}

// FilterMarquee keeps the unexpired marquee announcements, newest first.
func FilterMarquee(anns []Announcement, now time.Time) []Announcement {
	res := make([]Announcement, 0, len(anns))
	for _, ann := range anns {
		if ann.ShowInMarquee && !ann.ExpiredAt(now) {
			res = append(res, ann)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res
}

// AddMaterial adds a study material to a class owned by `author`.
func (svc *Service) AddMaterial(ctx context.Context, author user.User, classID string, nm NewMaterial) (StudyMaterial, error) {
	nm.Clean()
	cls, err := svc.repo.GetClass(ctx, ClassFilter{ID: classID})
	if err != nil {
		return StudyMaterial{}, err
	}
	if !isOwner(author, cls) {
		return StudyMaterial{}, core.ErrPermissionDenied
	}
	return svc.repo.CreateMaterial(ctx, StudyMaterial{
		ID:        uuid.New().String(),
		ClassID:   classID,
		AuthorID:  author.ID,
		Title:     nm.Title,
		Type:      nm.Type,
		Content:   nm.Content,
		URL:       nm.URL,
		CreatedAt: time.Now().UTC(),
	})
}

// Materials lists the study materials of a class `usr` may view, optionally of one type.
func (svc *Service) Materials(ctx context.Context, usr user.User, classID string, typ MaterialType) ([]StudyMaterial, error) {
	if _, err := svc.GetClass(ctx, usr, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterials(ctx, MaterialFilter{ClassID: classID, Type: typ})
}

// RecordPerformance records a test result of a student enrolled in a class owned by `teacher`.
func (svc *Service) RecordPerformance(ctx context.Context, teacher user.User, classID string, np NewPerformance) (Performance, error) {
	np.Clean()
	cls, err := svc.repo.GetClass(ctx, ClassFilter{ID: classID})
	if err != nil {
		return Performance{}, err
	}
	if !isOwner(teacher, cls) {
		return Performance{}, core.ErrPermissionDenied
	}
	if np.MarksObtained > np.TotalMarks {
		return Performance{}, core.NewValidationError(nil, core.FieldError{
			Field: "marks_obtained",
			Error: "must be less than or equal to total_marks",
		})
	}
	enrolled, err := svc.isEnrolled(ctx, classID, np.StudentID)
	if err != nil {
		return Performance{}, err
	}
	if !enrolled {
		return Performance{}, core.NewValidationError(ErrNotEnrolled, core.FieldError{
			Field: "student_id",
			Error: ErrNotEnrolled.Error(),
		})
	}
	return svc.repo.CreatePerformance(ctx, Performance{
		ID:            uuid.New().String(),
		StudentID:     np.StudentID,
		ClassID:       classID,
		TestName:      np.TestName,
		MarksObtained: np.MarksObtained,
		TotalMarks:    np.TotalMarks,
		Remarks:       np.Remarks,
		RecordedAt:    time.Now().UTC(),
	})
}

// StudentPerformances returns the performances of a student as seen by `viewer`:
// all of them for the student, their parents and admins; those of their classes for a teacher.
func (svc *Service) StudentPerformances(ctx context.Context, viewer user.User, studentID string) ([]Performance, error) {
	filter := PerformanceFilter{StudentID: studentID}
	switch {
	case viewer.IsAdmin(), viewer.ID == studentID, viewer.IsParentOf(studentID):
	case viewer.IsTeacher():
		ids, err := svc.classIDs(ctx, viewer)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, core.ErrPermissionDenied
		}
		filter.ClassIDs = ids
	default:
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryPerformances(ctx, filter)
}
