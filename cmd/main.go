package main

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/aidyn-m/qazexam/config"
	"github.com/aidyn-m/qazexam/database"
	_ "github.com/aidyn-m/qazexam/docs" // Swagger docs - auto-generated
	userctrl "github.com/aidyn-m/qazexam/internal/controller/user"
	"github.com/aidyn-m/qazexam/internal/logger"
	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
	"github.com/aidyn-m/qazexam/internal/service"
)

// @title QazExam Attempt API
// @version 1.0
// @description Four-skill exam platform: attempt lifecycle, answer recording and scoring.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			NewRand,
		),

		fx.Provide(
			repository.NewExamRepository,
			repository.NewContentRepository,
			repository.NewAttemptRepository,
			repository.NewQuestionAttemptRepository,
			repository.NewAnswerRepository,
		),

		fx.Provide(
			service.NewMinioAudioStorage,
			service.NewGeminiTranscriber,
			service.NewAttemptInitService,
			service.NewExamService,
			service.NewAnswerService,
			service.NewGradingService,
			service.NewNavigatorService,
		),

		fx.Provide(
			userctrl.NewExamController,
			userctrl.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

// NewRand provides the randomness source used for attempt population.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.DebugMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	examCtrl *userctrl.ExamController,
	attemptCtrl *userctrl.AttemptController,
) {
	api := router.Group("/api/v1")
	{
		api.GET("/exams", examCtrl.GetCatalogue)
		api.GET("/exams/:exam_id", examCtrl.GetExamDetail)
		api.POST("/exams/:exam_id/attempts", examCtrl.StartAttempt)

		api.GET("/attempts/:attempt_id/question", attemptCtrl.GetQuestion)
		api.POST("/attempts/:attempt_id/questions/:question_id/answer", attemptCtrl.RecordMCQAnswer)
		api.POST("/attempts/:attempt_id/questions/:question_id/speaking", attemptCtrl.RecordSpeakingAnswer)
		api.POST("/attempts/:attempt_id/questions/:question_id/writing", attemptCtrl.RecordWritingAnswer)
		api.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
		api.GET("/attempts/:attempt_id/review", attemptCtrl.GetReview)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("QazExam API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Exam{},
		&model.Section{},
		&model.SectionMaterial{},
		&model.Question{},
		&model.Option{},
		&model.SpeakingRubric{},
		&model.Writing{},
		&model.ExamAttempt{},
		&model.SectionAttempt{},
		&model.QuestionAttempt{},
		&model.MCQSelection{},
		&model.SpeakingAnswer{},
		&model.WritingSubmission{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
