package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/tutoring-marketplace/internal/handler"    // handlers translating HTTP to service calls
	"github.com/iliyamo/tutoring-marketplace/internal/middleware" // session guard, role check, cache
	"github.com/iliyamo/tutoring-marketplace/internal/model"      // role names for RequireRole
)

// Deps carries everything RegisterRoutes wires together. RateLimit and
// Cache may be nil, in which case they are skipped.
type Deps struct {
	Auth     *handler.AuthHandler
	Messages *handler.MessageHandler
	Lessons  *handler.LessonHandler
	Tutors   *handler.TutorHandler
	Quizzes  *handler.QuizHandler

	Verifier    middleware.TokenVerifier
	TokenHeader string

	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes mounts the public routes (health, register, login) and the
// protected groups. Protected routes run JWTAuth first so the rate limiter
// can key buckets by user.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	e.POST("/auth/register", d.Auth.Register, optional(d.RateLimit)...)
	e.POST("/auth/login", d.Auth.Login, optional(d.RateLimit)...)

	guard := []echo.MiddlewareFunc{middleware.JWTAuth(d.Verifier, d.TokenHeader)}
	guard = append(guard, optional(d.RateLimit)...)

	auth := e.Group("/auth", guard...)
	auth.GET("/profile", d.Auth.Profile)
	auth.PUT("/profile", d.Auth.UpdateProfile)

	msgs := e.Group("/messages", guard...)
	msgs.GET("/:userId", d.Messages.Conversation)
	msgs.POST("", d.Messages.Send)
	msgs.PUT("/mark-read", d.Messages.MarkRead)

	lessons := e.Group("/lessons", guard...)
	lessons.GET("", d.Lessons.List)
	lessons.POST("", d.Lessons.Create)
	lessons.GET("/:id", d.Lessons.Get)
	lessons.PUT("/:id", d.Lessons.Update)
	lessons.POST("/:id/generate-link", d.Lessons.GenerateLink)
	lessons.POST("/:id/quiz", d.Lessons.SubmitQuiz)

	// The tutor directory is identical for every caller, so it is cached
	// behind the guard.
	tutors := e.Group("/tutors", append(guard, optional(d.Cache)...)...)
	tutors.GET("", d.Tutors.List)
	tutors.GET("/subject/:subject", d.Tutors.BySubject)
	tutors.GET("/:id", d.Tutors.Get)

	quizzes := e.Group("/quizzes", guard...)
	quizzes.POST("", d.Quizzes.Create, middleware.RequireRole(model.RoleTutor))
	quizzes.GET("", d.Quizzes.List)
	quizzes.GET("/:id", d.Quizzes.Get)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
