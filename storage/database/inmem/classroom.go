package inmemdb

import (
	"context"
	"sort"

	"github.com/educonnectpro/educonnect/core/classroom"
)

type classroomRepository struct {
	db *classroomTables
}

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db.classroom}
}

func (repo *classroomRepository) CreateClass(_ context.Context, cls classroom.Class) (classroom.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) GetClass(_ context.Context, filter classroom.ClassFilter) (classroom.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if cls, ok := repo.db.classes[filter.ID]; ok {
			return *cls, nil
		}
		return classroom.Class{}, classroom.ErrNotFound
	}
	for _, cls := range repo.db.classes {
		if filter.Code != "" && cls.Code == filter.Code {
			return *cls, nil
		}
	}
	return classroom.Class{}, classroom.ErrNotFound
}

func (repo *classroomRepository) enrolledIn(studentID string) map[string]bool {
	classIDs := make(map[string]bool)
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			classIDs[enr.ClassID] = true
		}
	}
	return classIDs
}

func (repo *classroomRepository) QueryClasses(_ context.Context, query classroom.ClassQuery) ([]classroom.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrolled map[string]bool
	if query.StudentID != "" {
		enrolled = repo.enrolledIn(query.StudentID)
	}

	classes := make([]classroom.Class, 0)
	for _, cls := range repo.db.classes {
		if query.TeacherID != "" && cls.TeacherID != query.TeacherID {
			continue
		}
		if enrolled != nil && !enrolled[cls.ID] {
			continue
		}
		if query.IDs != nil && !contains(query.IDs, cls.ID) {
			continue
		}
		classes = append(classes, *cls)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.After(classes[j].CreatedAt) })
	return classes, nil
}

func (repo *classroomRepository) ClassCodeExists(_ context.Context, code string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, cls := range repo.db.classes {
		if cls.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (repo *classroomRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.classes, id)
	for k, enr := range repo.db.enrollments {
		if enr.ClassID == id {
			delete(repo.db.enrollments, k)
		}
	}
	for k, ann := range repo.db.announcements {
		if ann.ClassID == id {
			delete(repo.db.announcements, k)
		}
	}
	for k, mat := range repo.db.materials {
		if mat.ClassID == id {
			delete(repo.db.materials, k)
		}
	}
	for k, perf := range repo.db.performances {
		if perf.ClassID == id {
			delete(repo.db.performances, k)
		}
	}
	return nil
}

func (repo *classroomRepository) CreateEnrollment(_ context.Context, enr classroom.Enrollment) (classroom.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, e := range repo.db.enrollments {
		if e.ClassID == enr.ClassID && e.StudentID == enr.StudentID {
			return classroom.Enrollment{}, classroom.ErrAlreadyEnrolled
		}
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *classroomRepository) QueryEnrollments(_ context.Context, filter classroom.EnrollmentFilter) ([]classroom.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]classroom.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.ClassID != "" && enr.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentIDs != nil && !contains(filter.StudentIDs, enr.StudentID) {
			continue
		}
		enrs = append(enrs, *enr)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs, nil
}

func (repo *classroomRepository) CreateAnnouncement(_ context.Context, ann classroom.Announcement) (classroom.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *classroomRepository) QueryAnnouncements(_ context.Context, filter classroom.AnnouncementFilter) ([]classroom.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	anns := make([]classroom.Announcement, 0)
	for _, ann := range repo.db.announcements {
		if filter.MarqueeOnly && !ann.ShowInMarquee {
			continue
		}
		if ann.IsGlobal() {
			if !filter.IncludeGlobal {
				continue
			}
		} else if filter.ClassIDs != nil && !contains(filter.ClassIDs, ann.ClassID) {
			continue
		}
		anns = append(anns, *ann)
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].CreatedAt.After(anns[j].CreatedAt) })
	return anns, nil
}

func (repo *classroomRepository) CreateMaterial(_ context.Context, mat classroom.StudyMaterial) (classroom.StudyMaterial, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.materials[mat.ID] = &mat
	return mat, nil
}

func (repo *classroomRepository) QueryMaterials(_ context.Context, filter classroom.MaterialFilter) ([]classroom.StudyMaterial, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mats := make([]classroom.StudyMaterial, 0)
	for _, mat := range repo.db.materials {
		if filter.ClassID != "" && mat.ClassID != filter.ClassID {
			continue
		}
		if filter.Type != "" && mat.Type != filter.Type {
			continue
		}
		mats = append(mats, *mat)
	}
	sort.Slice(mats, func(i, j int) bool { return mats[i].CreatedAt.After(mats[j].CreatedAt) })
	return mats, nil
}

func (repo *classroomRepository) CreatePerformance(_ context.Context, perf classroom.Performance) (classroom.Performance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.performances[perf.ID] = &perf
	return perf, nil
}

func (repo *classroomRepository) QueryPerformances(_ context.Context, filter classroom.PerformanceFilter) ([]classroom.Performance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	perfs := make([]classroom.Performance, 0)
	for _, perf := range repo.db.performances {
		if filter.StudentID != "" && perf.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassIDs != nil && !contains(filter.ClassIDs, perf.ClassID) {
			continue
		}
		perfs = append(perfs, *perf)
	}
	sort.Slice(perfs, func(i, j int) bool { return perfs[i].RecordedAt.After(perfs[j].RecordedAt) })
	return perfs, nil
}
