package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/user"
)

func registerAIAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	flows := deps.AIFlows
	staff := tokens.roleMiddleware(user.RoleTeacher, user.RoleAdmin)

	ag := g.Group("/ai", jwt)
	ag.POST("/announcement", generate(flows.GenerateAnnouncement, "announcement"), staff)
	ag.POST("/lesson-plan", generate(flows.GenerateLessonPlan, "lesson plan"), staff)
	ag.POST("/test-paper", generate(flows.GenerateTestPaper, "test paper"), staff)
	ag.POST("/study-guide", generate(flows.GenerateStudyGuide, "study guide"))
	ag.POST("/doubt", generate(flows.AnswerDoubt, "doubt answer"))
	ag.POST("/performance-analysis", generate(flows.AnalyzePerformance, "performance analysis"))
}

// generate binds the flow input; the flow validates it.
func generate[In, Out any](flow func(context.Context, In) (Out, error), name string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var in In
		if err := ctx.Bind(&in); err != nil {
			return errors.Wrapf(err, "binding %s input", name)
		}
		out, err := flow(ctx.Request().Context(), in)
		if err != nil {
			return errors.Wrapf(err, "generating %s", name)
		}
		return ctx.JSON(http.StatusOK, out)
	}
}

