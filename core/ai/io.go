package ai

type AnnouncementInput struct {
	Topic     string `json:"topic" validate:"required,notblank,max=300"`
	Audience  string `json:"audience" validate:"omitempty,oneof=students parents all"`
	Tone      string `json:"tone" validate:"omitempty,oneof=formal friendly urgent"`
	ClassName string `json:"class_name" validate:"max=120"`
	Details   string `json:"details" validate:"max=2000"`
}

type AnnouncementOutput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type LessonPlanInput struct {
	Subject         string `json:"subject" validate:"required,notblank"`
	Topic           string `json:"topic" validate:"required,notblank"`
	Grade           string `json:"grade" validate:"required,notblank"`
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0,lte=480"`
	Objectives      string `json:"objectives" validate:"max=2000"`
}

type Activity struct {
	Name            string `json:"name" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
	Description     string `json:"description" validate:"required"`
}

type LessonPlanOutput struct {
	Title      string     `json:"title" validate:"required"`
	Objectives []string   `json:"objectives" validate:"min=1,dive,required"`
	Materials  []string   `json:"materials"`
	Activities []Activity `json:"activities" validate:"min=1,dive"`
	Assessment string     `json:"assessment"`
	Homework   string     `json:"homework"`
}

type TestPaperInput struct {
	Subject      string `json:"subject" validate:"required,notblank"`
	Topic        string `json:"topic" validate:"required,notblank"`
	Grade        string `json:"grade" validate:"required,notblank"`
	NumQuestions int    `json:"num_questions" validate:"gt=0,lte=50"`
	Difficulty   string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type Question struct {
	Question    string   `json:"question" validate:"required"`
	Options     []string `json:"options" validate:"min=2,dive,required"`
	Answer      string   `json:"answer" validate:"required"`
	Explanation string   `json:"explanation"`
}

func (q Question) hasAnswer() bool {
	for _, opt := range q.Options {
		if opt == q.Answer {
			return true
		}
	}
	return false
}

type TestPaperOutput struct {
	Title     string     `json:"title" validate:"required"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

type StudyGuideInput struct {
	Subject string `json:"subject" validate:"required,notblank"`
	Topic   string `json:"topic" validate:"required,notblank"`
	Grade   string `json:"grade"`
}

type KeyConcept struct {
	Term        string `json:"term" validate:"required"`
	Explanation string `json:"explanation" validate:"required"`
}

type StudyGuideOutput struct {
	Title             string       `json:"title" validate:"required"`
	Summary           string       `json:"summary" validate:"required"`
	KeyConcepts       []KeyConcept `json:"key_concepts" validate:"min=1,dive"`
	PracticeQuestions []string     `json:"practice_questions"`
	Tips              []string     `json:"tips"`
}

type DoubtInput struct {
	Subject  string `json:"subject" validate:"required,notblank"`
	Question string `json:"question" validate:"required,notblank,max=2000"`
	Grade    string `json:"grade"`
	Context  string `json:"context" validate:"max=4000"`
}

type DoubtOutput struct {
	Answer   string   `json:"answer" validate:"required"`
	Steps    []string `json:"steps"`
	FollowUp []string `json:"follow_up"`
}

type PerformanceRecord struct {
	TestName      string  `json:"test_name" validate:"required"`
	MarksObtained float64 `json:"marks_obtained" validate:"min=0"`
	TotalMarks    float64 `json:"total_marks" validate:"gt=0"`
	Percentage    float64 `json:"percentage"`
}

type PerformanceInput struct {
	StudentName string              `json:"student_name" validate:"required"`
	Records     []PerformanceRecord `json:"records" validate:"min=1,dive"`
}

type PerformanceOutput struct {
	HTML string `json:"html" validate:"required"`
}
