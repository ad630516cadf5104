package ai

import (
	"text/template"
)

var funcs = template.FuncMap{
	"orDefault": func(def, s string) string {
		if s == "" {
			return def
		}
		return s
	},
}

func newPrompt(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

var (
	announcementPrompt = newPrompt("announcement", `You are an assistant helping a teacher on a tutoring platform write an announcement.
Audience: {{orDefault "students" .Audience}}. Tone: {{orDefault "friendly" .Tone}}.
{{if .ClassName}}Class: {{.ClassName}}.
{{end}}Topic: {{.Topic}}
{{if .Details}}Details: {{.Details}}
{{end}}Write a short title and a clear announcement of at most 150 words.`)

	lessonPlanPrompt = newPrompt("lesson_plan", `You are an experienced {{.Subject}} teacher.
Write a lesson plan for grade {{.Grade}} on "{{.Topic}}" lasting {{.DurationMinutes}} minutes.
{{if .Objectives}}The teacher's objectives: {{.Objectives}}
{{end}}List the learning objectives, the materials needed, timed activities adding up to the lesson duration,
how learning will be assessed and the homework.`)

	testPaperPrompt = newPrompt("test_paper", `You are an examiner writing a {{orDefault "medium" .Difficulty}} multiple choice test.
Subject: {{.Subject}}. Topic: {{.Topic}}. Grade: {{.Grade}}.
Write exactly {{.NumQuestions}} questions with 4 options each.
The answer must be copied verbatim from the options. Add a one sentence explanation per answer.`)

	studyGuidePrompt = newPrompt("study_guide", `You are a tutor preparing a study guide{{if .Grade}} for grade {{.Grade}}{{end}}.
Subject: {{.Subject}}. Topic: {{.Topic}}.
Write a summary, the key concepts with simple explanations, practice questions and study tips.`)

	doubtPrompt = newPrompt("doubt", `You are a patient {{.Subject}} tutor{{if .Grade}} for grade {{.Grade}} students{{end}}.
A student asks: {{.Question}}
{{if .Context}}Context given by the student: {{.Context}}
{{end}}Answer clearly, explain the steps to reach the answer and suggest follow up questions.`)

	performancePrompt = newPrompt("performance_analysis", `You are an academic counsellor analysing the test results of {{.StudentName}}.
Results:
{{range .Records}}- {{.TestName}}: {{.MarksObtained}}/{{.TotalMarks}} ({{printf "%.1f" .Percentage}}%)
{{end}}Write the analysis as an HTML fragment (no <html>, <head> or <script> tags) with a summary,
strengths, areas to improve and a study plan. Use <h3>, <p> and <ul> elements.`)
)

var (
	announcementSchema = object([]string{"title", "content"}, map[string]*Schema{
		"title":   str("short announcement title"),
		"content": str("announcement body"),
	})

	lessonPlanSchema = object([]string{"title", "objectives", "activities"}, map[string]*Schema{
		"title":      str("lesson title"),
		"objectives": arrayOf(str(""), "learning objectives"),
		"materials":  arrayOf(str(""), "materials needed"),
		"activities": arrayOf(object([]string{"name", "duration_minutes", "description"}, map[string]*Schema{
			"name":             str("activity name"),
			"duration_minutes": integer("activity duration"),
			"description":      str("what the teacher and students do"),
		}), "timed activities"),
		"assessment": str("how learning is assessed"),
		"homework":   str("homework assignment"),
	})

	testPaperSchema = object([]string{"title", "questions"}, map[string]*Schema{
		"title": str("test title"),
		"questions": arrayOf(object([]string{"question", "options", "answer"}, map[string]*Schema{
			"question":    str("question text"),
			"options":     arrayOf(str(""), "answer options"),
			"answer":      str("the correct option, copied verbatim"),
			"explanation": str("why the answer is correct"),
		}), "multiple choice questions"),
	})

	studyGuideSchema = object([]string{"title", "summary", "key_concepts"}, map[string]*Schema{
		"title":   str("guide title"),
		"summary": str("topic summary"),
		"key_concepts": arrayOf(object([]string{"term", "explanation"}, map[string]*Schema{
			"term":        str("concept"),
			"explanation": str("simple explanation"),
		}), "key concepts"),
		"practice_questions": arrayOf(str(""), "practice questions"),
		"tips":               arrayOf(str(""), "study tips"),
	})

	doubtSchema = object([]string{"answer"}, map[string]*Schema{
		"answer":    str("the answer"),
		"steps":     arrayOf(str(""), "solution steps"),
		"follow_up": arrayOf(str(""), "follow up questions"),
	})

	performanceSchema = object([]string{"html"}, map[string]*Schema{
		"html": str("analysis as an HTML fragment"),
	})
)
