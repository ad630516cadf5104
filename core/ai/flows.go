package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrGeneration is returned when the model fails or answers with an invalid document.
var ErrGeneration = errors.New("could not generate a response, please try again")

// Observer is notified of every model call.
type Observer interface {
	ObserveGeneration(flow string, ok bool, elapsed time.Duration)
}

type Flows struct {
	model    Model
	validate *validator.Validate
	observer Observer
}

func NewFlows(model Model, validate *validator.Validate, observer Observer) *Flows {
	return &Flows{model: model, validate: validate, observer: observer}
}

// run validates `input`, renders the prompt, calls the model and decodes & validates its answer.
// Input validation errors are returned as is; everything else is an ErrGeneration.
func run[T any](ctx context.Context, f *Flows, flow string, tmpl *template.Template, schema *Schema, input interface{}) (out T, err error) {
	if err = f.validate.Struct(input); err != nil {
		return out, err
	}

	var prompt bytes.Buffer
	if err = tmpl.Execute(&prompt, input); err != nil {
		return out, errors.Wrapf(err, "rendering %s prompt", flow)
	}

	start := time.Now()
	defer func() {
		if f.observer != nil {
			f.observer.ObserveGeneration(flow, err == nil, time.Since(start))
		}
	}()

	text, err := f.model.Generate(ctx, Request{Flow: flow, Prompt: prompt.String(), Schema: schema})
	if err != nil {
		return out, errors.Wrap(ErrGeneration, err.Error())
	}
	text = stripCodeFence(text)
	if text == "" {
		return out, errors.Wrap(ErrGeneration, "empty model output")
	}
	if err = json.Unmarshal([]byte(text), &out); err != nil {
		return out, errors.Wrap(ErrGeneration, "decoding model output: "+err.Error())
	}
	if err = f.validate.Struct(out); err != nil {
		return out, errors.Wrap(ErrGeneration, "invalid model output: "+err.Error())
	}
	return out, nil
}

// stripCodeFence removes the markdown fence some models wrap JSON answers with.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func (f *Flows) GenerateAnnouncement(ctx context.Context, in AnnouncementInput) (AnnouncementOutput, error) {
	return run[AnnouncementOutput](ctx, f, "announcement", announcementPrompt, announcementSchema, in)
}

func (f *Flows) GenerateLessonPlan(ctx context.Context, in LessonPlanInput) (LessonPlanOutput, error) {
	return run[LessonPlanOutput](ctx, f, "lesson_plan", lessonPlanPrompt, lessonPlanSchema, in)
}

// GenerateTestPaper also checks that every answer is one of its question's options.
func (f *Flows) GenerateTestPaper(ctx context.Context, in TestPaperInput) (TestPaperOutput, error) {
	out, err := run[TestPaperOutput](ctx, f, "test_paper", testPaperPrompt, testPaperSchema, in)
	if err != nil {
		return TestPaperOutput{}, err
	}
	for i, q := range out.Questions {
		if !q.hasAnswer() {
			return TestPaperOutput{}, errors.Wrapf(ErrGeneration, "question %d: answer is not an option", i+1)
		}
	}
	return out, nil
}

func (f *Flows) GenerateStudyGuide(ctx context.Context, in StudyGuideInput) (StudyGuideOutput, error) {
	return run[StudyGuideOutput](ctx, f, "study_guide", studyGuidePrompt, studyGuideSchema, in)
}

func (f *Flows) AnswerDoubt(ctx context.Context, in DoubtInput) (DoubtOutput, error) {
	return run[DoubtOutput](ctx, f, "doubt", doubtPrompt, doubtSchema, in)
}

// AnalyzePerformance returns an HTML fragment. Fragments with scripts are rejected.
func (f *Flows) AnalyzePerformance(ctx context.Context, in PerformanceInput) (PerformanceOutput, error) {
	out, err := run[PerformanceOutput](ctx, f, "performance_analysis", performancePrompt, performanceSchema, in)
	if err != nil {
		return PerformanceOutput{}, err
	}
	if strings.Contains(strings.ToLower(out.HTML), "<script") {
		return PerformanceOutput{}, errors.Wrap(ErrGeneration, "script in analysis")
	}
	return out, nil
}
