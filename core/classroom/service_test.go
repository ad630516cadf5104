package classroom_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/user"
	emailsvc "github.com/educonnectpro/educonnect/services/email"
	inmemdb "github.com/educonnectpro/educonnect/storage/database/inmem"
	testutil "github.com/educonnectpro/educonnect/tests"
)

type fixture struct {
	svc      *classroom.Service
	users    *user.Service
	userRepo user.Repository

	admin, teacher, otherTeacher, student, otherStudent, parent user.User
	class                                                       classroom.Class
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	conf := core.NewTestConfig()
	db := inmemdb.Open()

	f := &fixture{userRepo: inmemdb.NewUserRepository(db)}
	f.users = user.NewService(f.userRepo, emailsvc.NewConsoleServiceMock(conf, new(testutil.Logger)), nil, nil, conf)
	f.svc = classroom.NewService(inmemdb.NewClassroomRepository(db), f.users)

	f.admin = testutil.CreateUser(t, f.userRepo, "Admin", "admin@example.com", "", user.RoleAdmin, true)
	f.teacher = testutil.CreateUser(t, f.userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true)
	f.otherTeacher = testutil.CreateUser(t, f.userRepo, "Other Teacher", "other.teacher@example.com", "", user.RoleTeacher, true)
	f.student = testutil.CreateUser(t, f.userRepo, "Student", "student@example.com", "", user.RoleStudent, true)
	f.otherStudent = testutil.CreateUser(t, f.userRepo, "Other Student", "other.student@example.com", "", user.RoleStudent, true)
	parent := testutil.CreateUser(t, f.userRepo, "Parent", "parent@example.com", "", user.RoleParent, true)

	var err error
	f.parent, err = f.users.LinkChild(ctx, parent, f.student.Email)
	require.NoError(t, err)

	f.class, err = f.svc.CreateClass(ctx, f.teacher, classroom.NewClass{Name: " Physics 101 ", Subject: "Physics", MonthlyFee: 1200})
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, f.student, f.class.Code)
	require.NoError(t, err)
	return f
}

func classIDs(classes []classroom.Class) []string {
	ids := make([]string, len(classes))
	for i, cls := range classes {
		ids[i] = cls.ID
	}
	return ids
}

func TestService_CreateClass(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Physics 101", f.class.Name)
	assert.Equal(t, f.teacher.ID, f.class.TeacherID)
	assert.Len(t, f.class.Code, 6)

	_, err := f.svc.CreateClass(context.Background(), f.student, classroom.NewClass{Name: "X", Subject: "Y"})
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_Enroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.class.Code

	tests := []struct {
		name    string
		usr     user.User
		code    string
		wantErr error
	}{
		{name: "lower case with spaces", usr: f.otherStudent, code: " " + strings.ToLower(code[:3]) + " " + code[3:]},
		{name: "twice", usr: f.student, code: code, wantErr: classroom.ErrAlreadyEnrolled},
		{name: "unknown code", usr: f.otherStudent, code: "ZZZZZ9", wantErr: classroom.ErrInvalidClassCode},
		{name: "malformed code", usr: f.otherStudent, code: "AB", wantErr: classroom.ErrInvalidClassCode},
		{name: "teacher", usr: f.otherTeacher, code: code, wantErr: core.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := f.svc.Enroll(ctx, tt.usr, tt.code)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.class.ID, cls.ID)
		})
	}

	roster, err := f.svc.Roster(ctx, f.teacher, f.class.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Other Student", roster[0].Name)
	assert.Equal(t, "Student", roster[1].Name)

	_, err = f.svc.Roster(ctx, f.otherTeacher, f.class.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_Classes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own, err := f.svc.CreateClass(ctx, f.otherTeacher, classroom.NewClass{Name: "Chemistry", Subject: "Chemistry"})
	require.NoError(t, err)

	tests := []struct {
		name string
		usr  user.User
		want []string
	}{
		{name: "teacher", usr: f.teacher, want: []string{f.class.ID}},
		{name: "other teacher", usr: f.otherTeacher, want: []string{own.ID}},
		{name: "student", usr: f.student, want: []string{f.class.ID}},
		{name: "student without classes", usr: f.otherStudent, want: []string{}},
		{name: "parent", usr: f.parent, want: []string{f.class.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classes, err := f.svc.Classes(ctx, tt.usr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, classIDs(classes))
		})
	}

	all, err := f.svc.Classes(ctx, f.admin)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.class.ID, own.ID}, classIDs(all))

	// visibility
	for _, usr := range []user.User{f.admin, f.teacher, f.student, f.parent} {
		_, err = f.svc.GetClass(ctx, usr, f.class.ID)
		assert.NoError(t, err, usr.Name)
	}
	for _, usr := range []user.User{f.otherTeacher, f.otherStudent} {
		_, err = f.svc.GetClass(ctx, usr, f.class.ID)
		assert.Equal(t, core.ErrPermissionDenied, err, usr.Name)
	}

	assert.Equal(t, core.ErrPermissionDenied, f.svc.DeleteClass(ctx, f.otherTeacher, f.class.ID))
	require.NoError(t, f.svc.DeleteClass(ctx, f.teacher, f.class.ID))
	_, err = f.svc.GetClass(ctx, f.teacher, f.class.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	enrolled, err := f.svc.IsEnrolled(ctx, f.class.ID, f.student.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestService_Announcements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := f.svc.PostAnnouncement(ctx, f.teacher, classroom.NewAnnouncement{Title: "Global", Content: "x"})
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.svc.PostAnnouncement(ctx, f.otherTeacher, classroom.NewAnnouncement{ClassID: f.class.ID, Title: "T", Content: "x"})
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.svc.PostAnnouncement(ctx, f.teacher, classroom.NewAnnouncement{
		ClassID: f.class.ID, Title: "T", Content: "x", ExpiresAt: now.Add(-time.Minute),
	})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "expires_at", verr.Fields[0].Field)

	global, err := f.svc.PostAnnouncement(ctx, f.admin, classroom.NewAnnouncement{
		Title: "Holiday", Content: "Closed on Monday", ShowInMarquee: true,
	})
	require.NoError(t, err)
	assert.True(t, global.IsGlobal())
	time.Sleep(time.Millisecond)
	test, err := f.svc.PostAnnouncement(ctx, f.teacher, classroom.NewAnnouncement{
		ClassID: f.class.ID, Title: "Unit test", Content: "Chapter 3", ShowInMarquee: true, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	quiet, err := f.svc.PostAnnouncement(ctx, f.teacher, classroom.NewAnnouncement{ClassID: f.class.ID, Title: "Notes", Content: "Uploaded"})
	require.NoError(t, err)

	ids := func(anns []classroom.Announcement) []string {
		out := make([]string, len(anns))
		for i, ann := range anns {
			out[i] = ann.ID
		}
		return out
	}

	anns, err := f.svc.Announcements(ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, []string{quiet.ID, test.ID, global.ID}, ids(anns))

	anns, err = f.svc.Announcements(ctx, f.otherStudent)
	require.NoError(t, err)
	assert.Equal(t, []string{global.ID}, ids(anns))

	anns, err = f.svc.Announcements(ctx, f.parent)
	require.NoError(t, err)
	assert.Len(t, anns, 3)

	marquee, err := f.svc.Marquee(ctx, f.student, now)
	require.NoError(t, err)
	assert.Equal(t, []string{test.ID, global.ID}, ids(marquee))

	marquee, err = f.svc.Marquee(ctx, f.student, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{global.ID}, ids(marquee))
}

func TestFilterMarquee(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	anns := []classroom.Announcement{
		{ID: "old", ShowInMarquee: true, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "hidden", ShowInMarquee: false, CreatedAt: now.Add(-time.Hour)},
		{ID: "expired", ShowInMarquee: true, ExpiresAt: now, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "new", ShowInMarquee: true, ExpiresAt: now.Add(time.Second), CreatedAt: now.Add(-time.Minute)},
	}
	got := classroom.FilterMarquee(anns, now)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
	assert.Empty(t, classroom.FilterMarquee(nil, now))
}

func TestService_Materials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddMaterial(ctx, f.otherTeacher, f.class.ID, classroom.NewMaterial{Title: "x", Type: classroom.MaterialNotes, Content: "x"})
	assert.Equal(t, core.ErrPermissionDenied, err)

	notes, err := f.svc.AddMaterial(ctx, f.teacher, f.class.ID, classroom.NewMaterial{
		Title: " Kinematics ", Type: classroom.MaterialNotes, Content: "v = u + at",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kinematics", notes.Title)
	_, err = f.svc.AddMaterial(ctx, f.teacher, f.class.ID, classroom.NewMaterial{
		Title: "Lecture", Type: classroom.MaterialVideo, URL: "https://videos.example.com/1",
	})
	require.NoError(t, err)

	all, err := f.svc.Materials(ctx, f.student, f.class.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyNotes, err := f.svc.Materials(ctx, f.parent, f.class.ID, classroom.MaterialNotes)
	require.NoError(t, err)
	require.Len(t, onlyNotes, 1)
	assert.Equal(t, notes.ID, onlyNotes[0].ID)

	_, err = f.svc.Materials(ctx, f.otherStudent, f.class.ID, "")
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_Performances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		teacher   user.User
		np        classroom.NewPerformance
		wantErr   error
		wantField string
	}{
		{
			name:    "not the owner",
			teacher: f.otherTeacher,
			np:      classroom.NewPerformance{StudentID: f.student.ID, TestName: "Unit 1", MarksObtained: 10, TotalMarks: 20},
			wantErr: core.ErrPermissionDenied,
		},
		{
			name:      "marks above total",
			teacher:   f.teacher,
			np:        classroom.NewPerformance{StudentID: f.student.ID, TestName: "Unit 1", MarksObtained: 30, TotalMarks: 20},
			wantField: "marks_obtained",
		},
		{
			name:      "student not enrolled",
			teacher:   f.teacher,
			np:        classroom.NewPerformance{StudentID: f.otherStudent.ID, TestName: "Unit 1", MarksObtained: 10, TotalMarks: 20},
			wantField: "student_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordPerformance(ctx, tt.teacher, f.class.ID, tt.np)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}

	perf, err := f.svc.RecordPerformance(ctx, f.teacher, f.class.ID, classroom.NewPerformance{
		StudentID: f.student.ID, TestName: "Unit 1", MarksObtained: 17, TotalMarks: 20,
	})
	require.NoError(t, err)
	assert.InDelta(t, 85.0, perf.Percentage(), 1e-9)

	for _, viewer := range []user.User{f.student, f.parent, f.admin, f.teacher} {
		perfs, err := f.svc.StudentPerformances(ctx, viewer, f.student.ID)
		require.NoError(t, err, viewer.Name)
		assert.Len(t, perfs, 1, viewer.Name)
	}

	_, err = f.svc.StudentPerformances(ctx, f.otherStudent, f.student.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = f.svc.StudentPerformances(ctx, f.otherTeacher, f.student.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	// a teacher only sees the results of their own classes
	_, err = f.svc.CreateClass(ctx, f.otherTeacher, classroom.NewClass{Name: "Chemistry", Subject: "Chemistry"})
	require.NoError(t, err)
	perfs, err := f.svc.StudentPerformances(ctx, f.otherTeacher, f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, perfs)
}
