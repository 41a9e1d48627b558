package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/worktrack/timesheet-backend/internal/notify"
	"github.com/worktrack/timesheet-backend/internal/pms"
	"github.com/worktrack/timesheet-backend/internal/timesheet/events"
	"github.com/worktrack/timesheet-backend/internal/timesheet/handler"
	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
	"github.com/worktrack/timesheet-backend/pkg/config"
	"github.com/worktrack/timesheet-backend/pkg/database"
	"github.com/worktrack/timesheet-backend/pkg/httputil"
	"github.com/worktrack/timesheet-backend/pkg/logger"
	"github.com/worktrack/timesheet-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("timesheet-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("timesheet-service", cfg.Server.Environment)
	log.Info().Msg("starting Timesheet Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	pub, err := messaging.NewPublisher(rmq, messaging.ExchangeTimesheetEvents, "timesheet-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	broadcaster := events.NewPublisher(pub, log)

	// External collaborators
	pmsClient := pms.NewClient(&cfg.PMS, log)
	notifier := notify.NewHTTPNotifier(&cfg.Notifier, log)

	// Initialize repositories
	employeeRepo := repository.NewEmployeeRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	timeEntryRepo := repository.NewTimeEntryRepository(db)
	postponementRepo := repository.NewPostponementRepository(db)

	// Initialize services
	gateService := service.NewGateService(employeeRepo, pmsClient, settingsRepo, log)
	resolutionService := service.NewResolutionService(postponementRepo, employeeRepo, pmsClient, notifier, broadcaster, log)
	submissionService := service.NewSubmissionService(timeEntryRepo, employeeRepo, gateService, notifier, broadcaster, log)
	timeEntryService := service.NewTimeEntryService(timeEntryRepo, employeeRepo, broadcaster, log)
	approvalService := service.NewApprovalService(timeEntryRepo, employeeRepo, notifier, broadcaster, log)
	policyService := service.NewPolicyService(settingsRepo, broadcaster, log)

	// Initialize handlers
	gateHandler := handler.NewGateHandler(gateService, log)
	taskHandler := handler.NewTaskHandler(resolutionService, log)
	settingsHandler := handler.NewSettingsHandler(policyService, log)
	timeEntryHandler := handler.NewTimeEntryHandler(timeEntryService, submissionService, log)
	approvalHandler := handler.NewApprovalHandler(approvalService, log)
	employeeHandler := handler.NewEmployeeHandler(employeeRepo, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Identity)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "timesheet-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Pending-resolution gate
		r.Get("/pending-deadline-tasks", gateHandler.GetPendingDeadlineTasks)
		r.Get("/available-tasks", gateHandler.GetAvailableTasks)
		r.Get("/subtasks", gateHandler.GetSubtasks)

		// Deadline resolution
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Post("/postpone", taskHandler.PostponeTask)
			r.Post("/acknowledge", taskHandler.AcknowledgeTask)
			r.Get("/postponements", taskHandler.GetPostponements)
		})

		// Policy
		r.Get("/settings/timesheet-blocking", settingsHandler.GetBlockingPolicy)
		r.Patch("/settings/timesheet-blocking", settingsHandler.UpdateBlockingPolicy)

		// Time entries
		r.Route("/time-entries", func(r chi.Router) {
			r.Get("/", timeEntryHandler.List)
			r.Post("/", timeEntryHandler.Create)
			r.Post("/submit", timeEntryHandler.Submit)
			r.Get("/pending", timeEntryHandler.ListPending)
			r.Get("/employee/{id}", timeEntryHandler.ListByEmployee)
			r.Get("/{id}", timeEntryHandler.GetByID)
			r.Put("/{id}", timeEntryHandler.Update)
			r.Delete("/{id}", timeEntryHandler.Delete)
			r.Patch("/{id}/manager-approve", approvalHandler.ManagerApprove)
			r.Patch("/{id}/approve", approvalHandler.Approve)
			r.Patch("/{id}/reject", approvalHandler.Reject)
		})

		// Employee directory
		r.Get("/employees", employeeHandler.List)
		r.Get("/employees/{id}", employeeHandler.GetByID)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
