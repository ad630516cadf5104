package classroom

import (
	"time"

	"github.com/educonnectpro/educonnect/core"
)

type Class struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Grade       string    `json:"grade"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	MonthlyFee  float64   `json:"monthly_fee"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type NewClass struct {
	Name        string  `json:"name" validate:"required,notblank,max=120"`
	Subject     string  `json:"subject" validate:"required,notblank"`
	Grade       string  `json:"grade"`
	Description string  `json:"description" validate:"max=2000"`
	Schedule    string  `json:"schedule"`
	MonthlyFee  float64 `json:"monthly_fee" validate:"min=0"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Grade = core.CleanString(nc.Grade)
	nc.Description = core.CleanString(nc.Description)
	nc.Schedule = core.CleanString(nc.Schedule)
}

type Enrollment struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"class_id"`
	StudentID  string    `json:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// Announcement without a ClassID is global.
type Announcement struct {
	ID            string    `json:"id"`
	ClassID       string    `json:"class_id,omitempty"`
	AuthorID      string    `json:"author_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ShowInMarquee bool      `json:"show_in_marquee"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"` // UTC; zero never expires
	CreatedAt     time.Time `json:"created_at"`           // UTC
}

func (a Announcement) IsGlobal() bool {
	return a.ClassID == ""
}

func (a Announcement) ExpiredAt(t time.Time) bool {
	return !a.ExpiresAt.IsZero() && !a.ExpiresAt.After(t)
}

type NewAnnouncement struct {
	ClassID       string    `json:"class_id"`
	Title         string    `json:"title" validate:"required,notblank,max=200"`
	Content       string    `json:"content" validate:"required,notblank"`
	ShowInMarquee bool      `json:"show_in_marquee"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (na *NewAnnouncement) Clean() {
	na.ClassID = core.CleanString(na.ClassID)
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
}

type MaterialType string

const (
	MaterialNotes      MaterialType = "notes"
	MaterialDPP        MaterialType = "dpp" // daily practice paper
	MaterialVideo      MaterialType = "video"
	MaterialTestPaper  MaterialType = "test_paper"
	MaterialStudyGuide MaterialType = "study_guide"
	MaterialLessonPlan MaterialType = "lesson_plan"
)

var MaterialTypes = []MaterialType{
	MaterialNotes, MaterialDPP, MaterialVideo, MaterialTestPaper, MaterialStudyGuide, MaterialLessonPlan,
}

func (t MaterialType) Valid() bool {
	for _, mt := range MaterialTypes {
		if t == mt {
			return true
		}
	}
	return false
}

type StudyMaterial struct {
	ID        string       `json:"id"`
	ClassID   string       `json:"class_id"`
	AuthorID  string       `json:"author_id"`
	Title     string       `json:"title"`
	Type      MaterialType `json:"type"`
	Content   string       `json:"content,omitempty"`
	URL       string       `json:"url,omitempty"`
	CreatedAt time.Time    `json:"created_at"` // UTC
}

type NewMaterial struct {
	Title   string       `json:"title" validate:"required,notblank,max=200"`
	Type    MaterialType `json:"type" validate:"required,materialtype"`
	Content string       `json:"content" validate:"required_without=URL"`
	URL     string       `json:"url" validate:"omitempty,url"`
}

func (nm *NewMaterial) Clean() {
	nm.Title = core.CleanString(nm.Title)
	nm.URL = core.CleanString(nm.URL)
}

type Performance struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	ClassID       string    `json:"class_id"`
	TestName      string    `json:"test_name"`
	MarksObtained float64   `json:"marks_obtained"`
	TotalMarks    float64   `json:"total_marks"`
	Remarks       string    `json:"remarks,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"` // UTC
}

// Percentage of the total marks obtained, 0 when TotalMarks is not positive.
func (p Performance) Percentage() float64 {
	if p.TotalMarks <= 0 {
		return 0
	}
	return p.MarksObtained / p.TotalMarks * 100
}

type NewPerformance struct {
	StudentID     string  `json:"student_id" validate:"required"`
	TestName      string  `json:"test_name" validate:"required,notblank"`
	MarksObtained float64 `json:"marks_obtained" validate:"min=0,ltefield=TotalMarks"`
	TotalMarks    float64 `json:"total_marks" validate:"gt=0"`
	Remarks       string  `json:"remarks" validate:"max=1000"`
}

func (np *NewPerformance) Clean() {
	np.StudentID = core.CleanString(np.StudentID)
	np.TestName = core.CleanString(np.TestName)
	np.Remarks = core.CleanString(np.Remarks)
}

// ClassFilter selects a single Class. The first non-empty field is used.
type ClassFilter struct {
	ID   string
	Code string
}

// ClassQuery applies AND operation on its non-empty fields.
type ClassQuery struct {
	TeacherID string
	StudentID string // enrolled student
	IDs       []string
}

type EnrollmentFilter struct {
	ClassID    string
	StudentIDs []string
}

type AnnouncementFilter struct {
	// ClassIDs restricts class announcements; nil means all classes.
	ClassIDs      []string
	IncludeGlobal bool
	MarqueeOnly   bool
}

type MaterialFilter struct {
	ClassID string
	Type    MaterialType
}

type PerformanceFilter struct {
	StudentID string
	ClassIDs  []string
}
