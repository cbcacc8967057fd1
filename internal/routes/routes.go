package routes

import (
	"doctor-portal-server/internal/analysis"
	"doctor-portal-server/internal/chat"
	"doctor-portal-server/internal/config"
	"doctor-portal-server/internal/handlers"
	"doctor-portal-server/internal/middleware"
	"doctor-portal-server/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies carries the shared collaborators the handlers need beyond the
// database handle.
type Dependencies struct {
	Registry   *chat.Registry
	Service    *chat.Service
	Gateway    *chat.Gateway
	Verifier   handlers.ExternalAuthVerifier
	Summarizer analysis.Summarizer
	Reports    analysis.ReportReader
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, deps Dependencies) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, deps.Verifier)
	doctorHandler := handlers.NewDoctorHandler(db, deps.Registry)
	patientHandler := handlers.NewPatientHandler(db, cfg)
	chatHandler := handlers.NewChatHandler(db, deps.Service)
	notificationHandler := handlers.NewNotificationHandler(db)
	analysisHandler := handlers.NewAnalysisHandler(db, deps.Summarizer, deps.Reports)

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/google", authHandler.GoogleLogin)
			authRoutes.GET("/google/callback", authHandler.GoogleCallback)
		}
	}

	// Authenticated routes
	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/me", authHandler.Me)
		}

		// Doctor-facing routes
		doctorRoutes := private.Group("/doctor")
		doctorRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
		{
			doctorRoutes.GET("/patients", doctorHandler.GetPatients)
			doctorRoutes.POST("/patients", doctorHandler.AddPatient)
			doctorRoutes.GET("/patients/:id", doctorHandler.GetPatientByID)
			doctorRoutes.POST("/patients/:id", doctorHandler.UpdatePatient)

			doctorRoutes.GET("/appointments", doctorHandler.GetAppointments)
			doctorRoutes.POST("/appointments", doctorHandler.CreateAppointment)
			doctorRoutes.PUT("/appointments/:id", doctorHandler.RescheduleAppointment)
			doctorRoutes.DELETE("/appointments/:id", doctorHandler.DeleteAppointment)

			doctorRoutes.POST("/patients/:id/diagnosis", doctorHandler.AddDiagnosis)
			doctorRoutes.GET("/patients/:id/diagnosis", doctorHandler.GetDiagnoses)
			doctorRoutes.POST("/patients/:id/prescriptions", doctorHandler.AddPrescription)
			doctorRoutes.GET("/patients/:id/prescriptions", doctorHandler.GetPrescriptions)
		}

		// Patient-facing routes
		patientRoutes := private.Group("/patient")
		patientRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			patientRoutes.GET("/profile", patientHandler.GetProfile)
			patientRoutes.PUT("/profile", patientHandler.UpdateProfile)

			patientRoutes.GET("/appointments", patientHandler.GetAppointments)
			patientRoutes.POST("/appointments", patientHandler.BookAppointment)
			patientRoutes.PUT("/appointments/:id", patientHandler.RescheduleAppointment)
			patientRoutes.DELETE("/appointments/:id", patientHandler.CancelAppointment)

			patientRoutes.POST("/upload-report", patientHandler.UploadReport)
		}

		// Chat routes (authorization inside the handlers)
		chatRoutes := private.Group("/chat")
		{
			chatRoutes.GET("/:userId1/:userId2", chatHandler.GetHistory)
			chatRoutes.POST("/request-appointment", chatHandler.RequestAppointment)
			chatRoutes.POST("/request-reschedule", chatHandler.RequestReschedule)
			chatRoutes.POST("/request-cancellation", chatHandler.RequestCancellation)
		}

		// Notification routes
		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PUT("/:id/read", notificationHandler.MarkRead)
			notificationRoutes.PUT("/read-all", notificationHandler.MarkAllRead)
			notificationRoutes.DELETE("/:id", notificationHandler.DeleteNotification)
		}

		// AI analysis routes
		analysisRoutes := private.Group("/analysis")
		analysisRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
		{
			analysisRoutes.POST("/health-summary/:patientId", analysisHandler.HealthSummary)
		}
	}

	// Chat websocket endpoint. The gateway reads userId from the query
	// string like the browser client sends it.
	router.GET("/ws", deps.Gateway.Handle)

	// Uploaded reports are served statically
	router.Static("/uploads", cfg.UploadDir)

	// Simple health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
