package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/educonnectpro/educonnect/apps/api/echo"
	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/ai"
	"github.com/educonnectpro/educonnect/core/reward"
	"github.com/educonnectpro/educonnect/core/support"
	"github.com/educonnectpro/educonnect/core/user"
)

func TestSupportAPI(t *testing.T) {
	e := setup(t)
	admin := e.createUser(t, "Admin", "admin@example.com", user.RoleAdmin)
	student := e.createUser(t, "Anu", "anu@example.com", user.RoleStudent)
	adminToken, studentToken := e.token(t, admin), e.token(t, student)

	e.run(t, []httpTest{
		{
			name:     "required fields",
			method:   http.MethodPost,
			path:     "/v1/support/tickets",
			token:    studentToken,
			body:     []byte(`{"category": "billing"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"subject": "this field is required",
				"message": "this field is required",
			}),
		},
		{
			name:     "invalid category",
			method:   http.MethodPost,
			path:     "/v1/support/tickets",
			token:    studentToken,
			body:     []byte(`{"subject": "Help", "message": "Cannot pay", "category": "gossip"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	rec := e.do(http.MethodPost, "/v1/support/tickets", studentToken, marchallObj(t, support.NewTicket{
		Subject: "Payment stuck", Message: "My fee payment keeps failing.",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticket := decode[support.Ticket](t, rec)
	assert.Equal(t, support.StatusOpen, ticket.Status)
	assert.Equal(t, support.CategoryGeneral, ticket.Category)
	require.Len(t, e.mail.SentMessages(), 1)
	assert.Equal(t, "ticket_received", e.mail.SentMessages()[0].TemplateName)

	e.run(t, []httpTest{
		{
			name:     "student cannot list all",
			method:   http.MethodGet,
			path:     "/v1/support/tickets/all",
			token:    studentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student cannot update",
			method:   http.MethodPut,
			path:     "/v1/support/tickets/" + ticket.ID,
			token:    studentToken,
			body:     marchallObj(t, support.UpdateTicket{Status: support.StatusResolved}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "invalid status",
			method:   http.MethodPut,
			path:     "/v1/support/tickets/" + ticket.ID,
			token:    adminToken,
			body:     []byte(`{"status": "done"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown ticket",
			method:   http.MethodPut,
			path:     "/v1/support/tickets/missing",
			token:    adminToken,
			body:     marchallObj(t, support.UpdateTicket{Status: support.StatusResolved}),
			wantCode: http.StatusNotFound,
		},
	})

	rec = e.do(http.MethodPut, "/v1/support/tickets/"+ticket.ID, adminToken, marchallObj(t, support.UpdateTicket{
		Status: support.StatusResolved, Response: "Fixed, please retry.",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[support.Ticket](t, rec)
	assert.Equal(t, support.StatusResolved, updated.Status)
	assert.Equal(t, "Fixed, please retry.", updated.Response)

	for path, token := range map[string]string{
		"/v1/support/tickets":                     studentToken,
		"/v1/support/tickets/all":                 adminToken,
		"/v1/support/tickets/all?status=resolved": adminToken,
	} {
		rec := e.do(http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decode[[]support.Ticket](t, rec), 1, path)
	}
	rec = e.do(http.MethodGet, "/v1/support/tickets", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]support.Ticket](t, rec))
}

func TestRewardAPI(t *testing.T) {
	e := setup(t)
	student := e.createUser(t, "Anu", "anu@example.com", user.RoleStudent)
	teacher := e.createUser(t, "Ravi", "ravi@example.com", user.RoleTeacher)
	studentToken := e.token(t, student)

	e.run(t, []httpTest{
		{
			name:     "tiers are public",
			method:   http.MethodGet,
			path:     "/v1/rewards/tiers",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, reward.DefaultTiers),
		},
		{
			name:     "teachers have no streak",
			method:   http.MethodPost,
			path:     "/v1/rewards/check-in",
			token:    e.token(t, teacher),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "status before check-in",
			method:   http.MethodGet,
			path:     "/v1/rewards/status",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, reward.NewStatus(0, reward.DefaultTiers)),
		},
	})

	first := reward.NewStatus(1, reward.DefaultTiers)
	e.run(t, []httpTest{
		{
			name:     "first check-in",
			method:   http.MethodPost,
			path:     "/v1/rewards/check-in",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.CheckInResponse{Status: first, Counted: true}),
		},
		{
			name:     "same day",
			method:   http.MethodPost,
			path:     "/v1/rewards/check-in",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.CheckInResponse{Status: first, Counted: false}),
		},
		{
			name:     "status",
			method:   http.MethodGet,
			path:     "/v1/rewards/status",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, first),
		},
	})
	assert.Equal(t, 5, first.TodayReward)
	assert.Equal(t, "Bronze", first.Tier.Name)
}

func TestAIAPI(t *testing.T) {
	e := setup(t)
	teacher := e.createUser(t, "Ravi", "ravi@example.com", user.RoleTeacher)
	student := e.createUser(t, "Anu", "anu@example.com", user.RoleStudent)
	teacherToken, studentToken := e.token(t, teacher), e.token(t, student)

	announcement := marchallObj(t, ai.AnnouncementInput{Topic: "Unit test on Friday", Audience: "students"})

	t.Run("generates", func(t *testing.T) {
		e.model.set("```json\n{\"title\": \"Unit test\", \"content\": \"Revise chapters 1 to 3.\"}\n```", nil)
		rec := e.do(http.MethodPost, "/v1/ai/announcement", teacherToken, announcement)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ai.AnnouncementOutput{Title: "Unit test", Content: "Revise chapters 1 to 3."}),
		}, rec)
	})

	e.model.set(`{"answer": "x = 4", "steps": ["2x = 8", "x = 4"]}`, nil)
	e.run(t, []httpTest{
		{
			name:     "students cannot write announcements",
			method:   http.MethodPost,
			path:     "/v1/ai/announcement",
			token:    studentToken,
			body:     announcement,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "requires auth",
			method:   http.MethodPost,
			path:     "/v1/ai/doubt",
			body:     []byte(`{}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "invalid input",
			method:   http.MethodPost,
			path:     "/v1/ai/doubt",
			token:    studentToken,
			body:     []byte(`{"subject": "Maths"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"question": "this field is required"}),
		},
		{
			name:     "doubt",
			method:   http.MethodPost,
			path:     "/v1/ai/doubt",
			token:    studentToken,
			body:     marchallObj(t, ai.DoubtInput{Subject: "Maths", Question: "Solve 2x = 8"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ai.DoubtOutput{Answer: "x = 4", Steps: []string{"2x = 8", "x = 4"}}),
		},
	})

	for name, answer := range map[string]string{"invalid output": `{"title": ""}`, "not json": "Sure! Here you go"} {
		t.Run(name, func(t *testing.T) {
			e.model.set(answer, nil)
			rec := e.do(http.MethodPost, "/v1/ai/announcement", teacherToken, announcement)
			checkCodeAndData(t, httpTest{
				wantCode: http.StatusBadGateway,
				wantData: marchallObj(t, httpErr{Error: "could not generate a response, please try again"}),
			}, rec)
		})
	}

	t.Run("model error", func(t *testing.T) {
		e.model.set("", errors.New("quota exceeded"))
		rec := e.do(http.MethodPost, "/v1/ai/doubt", studentToken, marchallObj(t, ai.DoubtInput{Subject: "Maths", Question: "Why?"}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marchallObj(t, httpErr{Error: "could not generate a response, please try again"}),
		}, rec)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	e := setup(t)
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/", "").Code)
	require.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/users/me", "").Code)

	rec := e.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `educonnect_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, body, `educonnect_http_requests_total{method="GET",route="/v1/users/me",status="401"} 1`)
}

func TestAuthRateLimit(t *testing.T) {
	e := setup(t, func(conf *core.Config) { conf.Server.AuthRateLimit = 1 })
	body := marchallObj(t, echoapi.OTPRequest{Phone: "+919876543210"})

	e.run(t, []httpTest{
		{
			name:     "first",
			method:   http.MethodPost,
			path:     "/v1/auth/otp/request",
			body:     body,
			wantCode: http.StatusOK,
		},
		{
			name:     "throttled",
			method:   http.MethodPost,
			path:     "/v1/auth/otp/request",
			body:     body,
			wantCode: http.StatusTooManyRequests,
			wantData: marchallObj(t, httpErr{Error: "too many requests, please try again later"}),
		},
		{
			name:     "login is not throttled",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: "nobody@example.com", Password: "x"}),
			wantCode: http.StatusBadRequest,
		},
	})
}
