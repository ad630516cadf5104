package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/educonnectpro/educonnect/core/classroom"
)

var (
	classColumns = []string{
		"id", "teacher_id", "name", "subject", "grade", "description", "schedule", "monthly_fee", "code", "created_at",
	}
	enrollmentColumns   = []string{"id", "class_id", "student_id", "enrolled_at"}
	announcementColumns = []string{
		"id", "class_id", "author_id", "title", "content", "show_in_marquee", "expires_at", "created_at",
	}
	materialColumns    = []string{"id", "class_id", "author_id", "title", "type", "content", "url", "created_at"}
	performanceColumns = []string{
		"id", "student_id", "class_id", "test_name", "marks_obtained", "total_marks", "remarks", "recorded_at",
	}
)

type announcementRow struct {
	ID            string      `db:"id"`
	ClassID       null.String `db:"class_id"`
	AuthorID      string      `db:"author_id"`
	Title         string      `db:"title"`
	Content       string      `db:"content"`
	ShowInMarquee bool        `db:"show_in_marquee"`
	ExpiresAt     null.Time   `db:"expires_at"`
	CreatedAt     time.Time   `db:"created_at"`
}

func (row announcementRow) announcement() classroom.Announcement {
	return classroom.Announcement{
		ID:            row.ID,
		ClassID:       row.ClassID.String,
		AuthorID:      row.AuthorID,
		Title:         row.Title,
		Content:       row.Content,
		ShowInMarquee: row.ShowInMarquee,
		ExpiresAt:     row.ExpiresAt.Time.UTC(),
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) exec(ctx context.Context, qb sq.Sqlizer, msg string) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, msg)
	}
	return nil
}

func (repo *classroomRepository) selectRows(ctx context.Context, dest interface{}, qb sq.SelectBuilder, msg string) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return errors.Wrap(repo.db.SelectContext(ctx, dest, query, args...), msg)
}

func (repo *classroomRepository) CreateClass(ctx context.Context, cls classroom.Class) (classroom.Class, error) {
	qb := psql.Insert("classes").Columns(classColumns...).Values(
		cls.ID, cls.TeacherID, cls.Name, cls.Subject, cls.Grade, cls.Description, cls.Schedule,
		cls.MonthlyFee, cls.Code, cls.CreatedAt.UTC(),
	)
	if err := repo.exec(ctx, qb, "inserting class"); err != nil {
		return classroom.Class{}, err
	}
	return cls, nil
}

func (repo *classroomRepository) GetClass(ctx context.Context, filter classroom.ClassFilter) (classroom.Class, error) {
	var where sq.Eq
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return classroom.Class{}, classroom.ErrNotFound
		}
		where = sq.Eq{"id": filter.ID}
	case filter.Code != "":
		where = sq.Eq{"code": filter.Code}
	default:
		return classroom.Class{}, classroom.ErrNotFound
	}

	query, args, err := psql.Select(classColumns...).From("classes").Where(where).ToSql()
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "building class query")
	}
	var cls classroom.Class
	if err = repo.db.GetContext(ctx, &cls, query, args...); err != nil {
		return classroom.Class{}, trapNoRowsErr(err, classroom.ErrNotFound, "finding class")
	}
	cls.CreatedAt = cls.CreatedAt.UTC()
	return cls, nil
}

func (repo *classroomRepository) QueryClasses(ctx context.Context, query classroom.ClassQuery) ([]classroom.Class, error) {
	where := sq.And{}
	if query.TeacherID != "" {
		where = append(where, sq.Eq{"teacher_id": query.TeacherID})
	}
	if query.StudentID != "" {
		where = append(where, sq.Expr("id IN (SELECT class_id FROM enrollments WHERE student_id = ?)", query.StudentID))
	}
	if query.IDs != nil {
		where = append(where, sq.Eq{"id": query.IDs})
	}

	classes := make([]classroom.Class, 0)
	qb := psql.Select(classColumns...).From("classes").Where(where).OrderBy("created_at DESC")
	if err := repo.selectRows(ctx, &classes, qb, "querying classes"); err != nil {
		return nil, err
	}
	return classes, nil
}

func (repo *classroomRepository) ClassCodeExists(ctx context.Context, code string) (bool, error) {
	query, args, err := psql.Select("1").Prefix("SELECT EXISTS (").From("classes").
		Where(sq.Eq{"code": code}).Suffix(")").ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building class code query")
	}
	var exists bool
	if err = repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, errors.Wrap(err, "checking class code")
	}
	return exists, nil
}

// DeleteClass relies on ON DELETE CASCADE for the class content.
func (repo *classroomRepository) DeleteClass(ctx context.Context, id string) error {
	return repo.exec(ctx, psql.Delete("classes").Where(sq.Eq{"id": id}), "deleting class")
}

func (repo *classroomRepository) CreateEnrollment(ctx context.Context, enr classroom.Enrollment) (classroom.Enrollment, error) {
	qb := psql.Insert("enrollments").Columns(enrollmentColumns...).
		Values(enr.ID, enr.ClassID, enr.StudentID, enr.EnrolledAt.UTC())
	if err := repo.exec(ctx, qb, "inserting enrollment"); err != nil {
		if isUniqueViolation(err) {
			return classroom.Enrollment{}, classroom.ErrAlreadyEnrolled
		}
		return classroom.Enrollment{}, err
	}
	return enr, nil
}

func (repo *classroomRepository) QueryEnrollments(ctx context.Context, filter classroom.EnrollmentFilter) ([]classroom.Enrollment, error) {
	where := sq.And{}
	if filter.ClassID != "" {
		where = append(where, sq.Eq{"class_id": filter.ClassID})
	}
	if filter.StudentIDs != nil {
		where = append(where, sq.Eq{"student_id": filter.StudentIDs})
	}

	enrs := make([]classroom.Enrollment, 0)
	qb := psql.Select(enrollmentColumns...).From("enrollments").Where(where).OrderBy("enrolled_at")
	if err := repo.selectRows(ctx, &enrs, qb, "querying enrollments"); err != nil {
		return nil, err
	}
	return enrs, nil
}

func (repo *classroomRepository) CreateAnnouncement(ctx context.Context, ann classroom.Announcement) (classroom.Announcement, error) {
	qb := psql.Insert("announcements").Columns(announcementColumns...).Values(
		ann.ID, nullString(ann.ClassID), ann.AuthorID, ann.Title, ann.Content, ann.ShowInMarquee,
		nullTime(ann.ExpiresAt), ann.CreatedAt.UTC(),
	)
	if err := repo.exec(ctx, qb, "inserting announcement"); err != nil {
		return classroom.Announcement{}, err
	}
	return ann, nil
}

func (repo *classroomRepository) QueryAnnouncements(ctx context.Context, filter classroom.AnnouncementFilter) ([]classroom.Announcement, error) {
	scope := sq.Or{}
	if filter.IncludeGlobal {
		scope = append(scope, sq.Eq{"class_id": nil})
	}
	switch {
	case filter.ClassIDs == nil:
		scope = append(scope, sq.NotEq{"class_id": nil})
	case len(filter.ClassIDs) > 0:
		scope = append(scope, sq.Eq{"class_id": filter.ClassIDs})
	}
	if len(scope) == 0 {
		return []classroom.Announcement{}, nil
	}
	where := sq.And{scope}
	if filter.MarqueeOnly {
		where = append(where, sq.Eq{"show_in_marquee": true})
	}

	var rows []announcementRow
	qb := psql.Select(announcementColumns...).From("announcements").Where(where).OrderBy("created_at DESC")
	if err := repo.selectRows(ctx, &rows, qb, "querying announcements"); err != nil {
		return nil, err
	}
	anns := make([]classroom.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, row.announcement())
	}
	return anns, nil
}

func (repo *classroomRepository) CreateMaterial(ctx context.Context, mat classroom.StudyMaterial) (classroom.StudyMaterial, error) {
	qb := psql.Insert("study_materials").Columns(materialColumns...).Values(
		mat.ID, mat.ClassID, mat.AuthorID, mat.Title, string(mat.Type), mat.Content, mat.URL, mat.CreatedAt.UTC(),
	)
	if err := repo.exec(ctx, qb, "inserting study material"); err != nil {
		return classroom.StudyMaterial{}, err
	}
	return mat, nil
}

func (repo *classroomRepository) QueryMaterials(ctx context.Context, filter classroom.MaterialFilter) ([]classroom.StudyMaterial, error) {
	where := sq.And{}
	if filter.ClassID != "" {
		where = append(where, sq.Eq{"class_id": filter.ClassID})
	}
	if filter.Type != "" {
		where = append(where, sq.Eq{"type": string(filter.Type)})
	}

	mats := make([]classroom.StudyMaterial, 0)
	qb := psql.Select(materialColumns...).From("study_materials").Where(where).OrderBy("created_at DESC")
	if err := repo.selectRows(ctx, &mats, qb, "querying study materials"); err != nil {
		return nil, err
	}
	return mats, nil
}

func (repo *classroomRepository) CreatePerformance(ctx context.Context, perf classroom.Performance) (classroom.Performance, error) {
	qb := psql.Insert("performances").Columns(performanceColumns...).Values(
		perf.ID, perf.StudentID, perf.ClassID, perf.TestName, perf.MarksObtained, perf.TotalMarks,
		perf.Remarks, perf.RecordedAt.UTC(),
	)
	if err := repo.exec(ctx, qb, "inserting performance"); err != nil {
		return classroom.Performance{}, err
	}
	return perf, nil
}

func (repo *classroomRepository) QueryPerformances(ctx context.Context, filter classroom.PerformanceFilter) ([]classroom.Performance, error) {
	where := sq.And{}
	if filter.StudentID != "" {
		where = append(where, sq.Eq{"student_id": filter.StudentID})
	}
	if filter.ClassIDs != nil {
		where = append(where, sq.Eq{"class_id": filter.ClassIDs})
	}

	perfs := make([]classroom.Performance, 0)
	qb := psql.Select(performanceColumns...).From("performances").Where(where).OrderBy("recorded_at DESC")
	if err := repo.selectRows(ctx, &perfs, qb, "querying performances"); err != nil {
		return nil, err
	}
	return perfs, nil
}
