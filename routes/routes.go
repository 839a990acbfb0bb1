package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/gyanguru/gyanguru-backend/controllers"
	"github.com/gyanguru/gyanguru-backend/middleware"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/ws"
)

type Controllers struct {
	Auth       *controllers.AuthController
	Quiz       *controllers.QuizController
	Doubt      *controllers.DoubtController
	Upload     *controllers.UploadController
	Assignment *controllers.AssignmentController
	Analytics  *controllers.AnalyticsController
	Admin      *controllers.AdminController
	Health     *controllers.HealthController
	WS         *ws.Handler
}

var (
	student = middleware.RequireRoles(models.RoleStudent)
	teacher = middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	parent  = middleware.RequireRoles(models.RoleParent)
	admin   = middleware.RequireRoles(models.RoleAdmin)
)

// SetupRouter registers every route. authRequired must be the
// AuthMiddleware built from the token issuer and the user store.
func SetupRouter(r *gin.Engine, ctl Controllers, authRequired gin.HandlerFunc) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	api.GET("/health", ctl.Health.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/register-initiate", ctl.Auth.RegisterInitiate)
		auth.POST("/register-verify", ctl.Auth.RegisterVerify)
		auth.POST("/send-otp", ctl.Auth.SendOTP)
		auth.POST("/verify-otp", ctl.Auth.VerifyOTP)
		auth.POST("/login", ctl.Auth.Login)
		auth.POST("/google", ctl.Auth.GoogleLogin)
		auth.POST("/refresh", ctl.Auth.Refresh)
		auth.POST("/logout", ctl.Auth.Logout)

		auth.GET("/profile", authRequired, ctl.Auth.GetProfile)
		auth.PUT("/profile", authRequired, ctl.Auth.UpdateProfile)
		auth.POST("/change-password", authRequired, ctl.Auth.ChangePassword)
		auth.POST("/register", authRequired, admin, ctl.Auth.Register)
	}

	quiz := api.Group("/quiz", authRequired)
	{
		quiz.GET("", ctl.Quiz.ListQuizzes)
		quiz.POST("", teacher, ctl.Quiz.CreateQuiz)
		quiz.GET("/my-attempts", student, ctl.Quiz.MyAttempts)
		quiz.GET("/attempts/:student_id", teacher, ctl.Quiz.StudentAttempts)
		quiz.GET("/attempt/:attempt_id", ctl.Quiz.GetAttempt)
		quiz.POST("/attempt/:attempt_id/submit", student, ctl.Quiz.SubmitAttempt)
		quiz.GET("/:id", ctl.Quiz.GetQuiz)
		quiz.PATCH("/:id/publish", teacher, ctl.Quiz.SetPublished)
		quiz.POST("/:id/attempt", student, ctl.Quiz.StartAttempt)
	}

	doubt := api.Group("/doubt", authRequired)
	{
		doubt.POST("", student, ctl.Doubt.CreateRoom)
		doubt.GET("/open", ctl.Doubt.ListOpen)
		doubt.GET("/:id", ctl.Doubt.GetRoom)
		doubt.POST("/:id/message", ctl.Doubt.PostMessage)
		doubt.POST("/:id/message/:message_id/vote", ctl.Doubt.Vote)
		doubt.POST("/:id/message/:message_id/best", ctl.Doubt.MarkBestAnswer)
		doubt.POST("/:id/escalate", student, ctl.Doubt.Escalate)
	}

	upload := api.Group("/upload", authRequired)
	{
		upload.POST("/essay", student, ctl.Upload.AnalyzeEssay)
		upload.POST("/code", student, ctl.Upload.ReviewCode)
		upload.POST("/audio", student, ctl.Upload.AnalyzeAudio)
		upload.POST("/image", ctl.Upload.AnalyzeImage)
		upload.POST("/pdf/read", ctl.Upload.ReadPDF)
		upload.POST("/word-definition", ctl.Upload.DefineWord)
		upload.POST("/tts", ctl.Upload.TextToSpeech)
		upload.POST("/lesson-plan", teacher, ctl.Upload.LessonPlan)
		upload.POST("/submission/:assignment_id", student, ctl.Upload.SubmitAssignment)
	}

	assignments := api.Group("/assignments", authRequired)
	{
		assignments.POST("", teacher, ctl.Assignment.CreateAssignment)
		assignments.PUT("/submissions/:id/grade", teacher, ctl.Assignment.GradeSubmission)
		assignments.GET("/:id", ctl.Assignment.GetAssignment)
		assignments.GET("/:id/submissions", teacher, ctl.Assignment.ListSubmissions)
	}

	analytics := api.Group("/analytics", authRequired)
	{
		analytics.GET("/student/dashboard", student, ctl.Analytics.StudentDashboard)
		analytics.GET("/student/suggestions", student, ctl.Analytics.Suggestions)
		analytics.GET("/teacher/class-analytics/:section_id", teacher, ctl.Analytics.ClassAnalytics)
		analytics.GET("/teacher/class-analytics/:section_id/export", teacher, ctl.Analytics.ExportClassAnalytics)
		analytics.GET("/parent/child-progress/:student_id", parent, ctl.Analytics.ChildProgress)
		analytics.GET("/weak-concepts/:student_id", ctl.Analytics.WeakConcepts)
		analytics.GET("/leaderboard/:section_id", ctl.Analytics.Leaderboard)
	}

	adminGroup := api.Group("/admin", authRequired, admin)
	{
		adminGroup.GET("/institutions", ctl.Admin.ListInstitutions)
		adminGroup.POST("/institutions", ctl.Admin.CreateInstitution)
		adminGroup.DELETE("/institutions/:id", ctl.Admin.DeleteInstitution)
		adminGroup.POST("/departments/:institution_id", ctl.Admin.CreateDepartment)
		adminGroup.POST("/years/:department_id", ctl.Admin.CreateYear)
		adminGroup.POST("/sections/:year_id", ctl.Admin.CreateSection)
		adminGroup.PUT("/users/:user_id/activate", ctl.Admin.SetUserActive)
		adminGroup.GET("/stats", ctl.Admin.Stats)
	}

	// Browsers cannot set headers on a websocket handshake, so these
	// authenticate with ?token= inside the handler.
	r.GET("/ws/doubt", ctl.WS.HandleLobby)
	r.GET("/ws/doubt/:id", ctl.WS.HandleRoom)

	return r
}
