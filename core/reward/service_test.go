package reward

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
	inmemdb "github.com/educonnectpro/educonnect/storage/database/inmem"
	testutil "github.com/educonnectpro/educonnect/tests"
)

type fakeStudents map[string]user.User

func (f fakeStudents) GetByID(_ context.Context, id string) (user.User, error) {
	usr, ok := f[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (f fakeStudents) Modify(ctx context.Context, id string, fn func(usr *user.User) error) (user.User, error) {
	usr, err := f.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if err = fn(&usr); err != nil {
		return user.User{}, err
	}
	f[id] = usr
	return usr, nil
}

func TestService_CheckIn(t *testing.T) {
	ctx := context.Background()
	students := fakeStudents{
		"stud":  {ID: "stud", Role: user.RoleStudent, Profile: user.StudentProfile{}},
		"teach": {ID: "teach", Role: user.RoleTeacher, Profile: user.TeacherProfile{}},
	}
	svc := NewService(students, DefaultTiers)
	day1 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	streak := func() int {
		u := students["stud"]
		p, _ := u.StudentProfile()
		return p.TotalStreakDays
	}

	st, counted, err := svc.CheckIn(ctx, "stud", day1)
	require.NoError(t, err)
	assert.True(t, counted)
	assert.Equal(t, 1, st.TotalStreakDays)
	assert.Equal(t, 1, st.DayInLevel)

	// same day
	st, counted, err = svc.CheckIn(ctx, "stud", day1.Add(10*time.Hour))
	require.NoError(t, err)
	assert.False(t, counted)
	assert.Equal(t, 1, streak())

	// next day, just after midnight
	st, counted, err = svc.CheckIn(ctx, "stud", time.Date(2024, 3, 2, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, counted)
	assert.Equal(t, 2, st.TotalStreakDays)

	// gap
	st, counted, err = svc.CheckIn(ctx, "stud", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, counted)
	assert.Equal(t, 1, st.TotalStreakDays)
	assert.Equal(t, 1, streak())

	st, err = svc.StatusFor(ctx, "stud")
	require.NoError(t, err)
	assert.Equal(t, "Bronze", st.Tier.Name)

	_, _, err = svc.CheckIn(ctx, "teach", day1)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	_, _, err = svc.CheckIn(ctx, "nobody", day1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_CheckIn_AcrossTiers(t *testing.T) {
	ctx := context.Background()
	students := fakeStudents{"stud": {ID: "stud", Role: user.RoleStudent, Profile: user.StudentProfile{}}}
	svc := NewService(students, DefaultTiers)

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var st Status
	for i := 0; i < 10; i++ {
		var err error
		st, _, err = svc.CheckIn(ctx, "stud", start.AddDate(0, 0, i))
		require.NoError(t, err)
	}
	assert.Equal(t, 10, st.TotalStreakDays)
	assert.Equal(t, 2, st.Tier.Level)
	assert.Equal(t, 3, st.DayInLevel)
}

func TestNewService_InvalidTiers(t *testing.T) {
	assert.Panics(t, func() { NewService(fakeStudents{}, nil) })
}

func TestService_CheckIn_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	users := user.NewService(repo, nil, nil, nil, core.NewTestConfig())
	stud := testutil.CreateUser(t, repo, "Student", "student@example.com", "", user.RoleStudent, true,
		user.StudentProfile{Grade: "9"})
	svc := NewService(users, DefaultTiers)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, ok, err := svc.CheckIn(ctx, stud.ID, now)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				counted++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			_, err := users.Update(ctx, stud, user.UpdateUser{Details: &user.ProfileDetails{Student: &user.StudentDetails{Grade: "9", School: "Lake School"}}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, counted)
	got, err := users.GetByID(ctx, stud.ID)
	require.NoError(t, err)
	profile, ok := got.StudentProfile()
	require.True(t, ok)
	assert.Equal(t, 1, profile.TotalStreakDays)
	assert.Equal(t, now, profile.LastCheckIn)
	assert.Equal(t, "Lake School", profile.School)
	assert.Equal(t, "9", profile.Grade)
}
