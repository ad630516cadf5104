package reward

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

// Students loads & modifies student accounts. Satisfied by *user.Service.
type Students interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	// Modify applies `fn` to the stored user and saves it, serialized per user.
	Modify(ctx context.Context, id string, fn func(usr *user.User) error) (user.User, error)
}

var errCheckedInToday = errors.New("already checked in today")

type Service struct {
	students Students
	tiers    []Tier
}

// NewService panics when `tiers` are invalid.
func NewService(students Students, tiers []Tier) *Service {
	if err := ValidateTiers(tiers); err != nil {
		panic(err)
	}
	return &Service{students: students, tiers: tiers}
}

func (svc *Service) Tiers() []Tier {
	return svc.tiers
}

func (svc *Service) student(ctx context.Context, id string) (user.User, user.StudentProfile, error) {
	usr, err := svc.students.GetByID(ctx, id)
	if err != nil {
		return user.User{}, user.StudentProfile{}, err
	}
	profile, ok := usr.StudentProfile()
	if !ok {
		return user.User{}, user.StudentProfile{}, core.ErrPermissionDenied
	}
	return usr, profile, nil
}

// CheckIn records the daily check-in of a student.
// A check-in counts at most once per UTC calendar day: the day after the last check-in extends
// the streak, a longer gap restarts it at 1. `counted` is false when already checked in today.
func (svc *Service) CheckIn(ctx context.Context, studentID string, now time.Time) (st Status, counted bool, err error) {
	var profile user.StudentProfile
	_, err = svc.students.Modify(ctx, studentID, func(usr *user.User) error {
		var ok bool
		if profile, ok = usr.StudentProfile(); !ok {
			return core.ErrPermissionDenied
		}

		today := truncateDay(now)
		if !profile.LastCheckIn.IsZero() {
			last := truncateDay(profile.LastCheckIn)
			switch {
			case !today.After(last):
				return errCheckedInToday
			case today.Equal(last.AddDate(0, 0, 1)):
				profile.TotalStreakDays++
			default:
				profile.TotalStreakDays = 1
			}
		} else {
			profile.TotalStreakDays = 1
		}
		profile.LastCheckIn = now.UTC()
		usr.Profile = profile
		usr.UpdatedAt = time.Now().UTC()
		return nil
	})
	switch {
	case err == errCheckedInToday:
		return NewStatus(profile.TotalStreakDays, svc.tiers), false, nil
	case err != nil:
		return Status{}, false, err
	}
	return NewStatus(profile.TotalStreakDays, svc.tiers), true, nil
}

// StatusFor returns the current status of a student without checking in.
func (svc *Service) StatusFor(ctx context.Context, studentID string) (Status, error) {
	_, profile, err := svc.student(ctx, studentID)
	if err != nil {
		return Status{}, err
	}
	return NewStatus(profile.TotalStreakDays, svc.tiers), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
