package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/domain/appointment"
	"github.com/clinicops/clinic/internal/domain/billing"
	"github.com/clinicops/clinic/internal/domain/certification"
	"github.com/clinicops/clinic/internal/domain/compliance"
	"github.com/clinicops/clinic/internal/domain/facility"
	"github.com/clinicops/clinic/internal/domain/feedback"
	"github.com/clinicops/clinic/internal/domain/insurance"
	"github.com/clinicops/clinic/internal/domain/patient"
	"github.com/clinicops/clinic/internal/domain/payroll"
	"github.com/clinicops/clinic/internal/domain/pharmacy"
	"github.com/clinicops/clinic/internal/domain/staff"
	"github.com/clinicops/clinic/internal/domain/treatment"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/blobstore"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/metrics"
	"github.com/clinicops/clinic/internal/platform/middleware"
	"github.com/clinicops/clinic/internal/platform/notification"
	"github.com/clinicops/clinic/internal/platform/sequence"
	"github.com/clinicops/clinic/internal/platform/sweep"
)

const (
	jobPatients       = "patients"
	jobCertifications = "certifications"
)

var sweepJobs = []string{jobPatients, jobCertifications}

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// app holds everything the serve and sweep commands share.
type app struct {
	pool     *pgxpool.Pool
	metrics  *metrics.Metrics
	sweeps   *sweep.Runner
	handlers []routeRegistrar
}

func (a *app) close() { a.pool.Close() }

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blobstore.NewS3(ctx, cfg.S3Bucket, cfg.S3Endpoint)
	case "memory", "":
		return blobstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func newMailer(cfg *config.Config, logger zerolog.Logger) *notification.Mailer {
	var sender notification.EmailSender = notification.NewLogSender(logger)
	if cfg.SMTPAddr != "" {
		sender = notification.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	}
	return notification.NewMailer(notification.NewTemplateEngine(), sender)
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("connected to database")

	docs, err := newBlobStore(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	m := metrics.New()
	tx := db.NewTxRunner(pool)
	seq := sequence.NewPGGenerator(pool)
	now := clock.Clock(clock.System)

	patientSvc := patient.NewService(patient.NewRepoPG(pool), tx, now)
	insuranceSvc := insurance.NewService(insurance.NewRepoPG(pool), patientSvc, tx, now)
	staffSvc := staff.NewService(staff.NewStaffTypeRepoPG(pool), staff.NewStaffRepoPG(pool),
		staff.NewAttendanceRepoPG(pool), staff.NewPerformanceRepoPG(pool), seq, now)
	facilitySvc := facility.NewService(facility.NewRoomRepoPG(pool), facility.NewBedRepoPG(pool))
	appointmentSvc := appointment.NewService(appointment.NewRepoPG(pool), patientSvc, seq, tx, now)
	treatmentSvc := treatment.NewService(treatment.NewPlanRepoPG(pool), treatment.NewProcessRepoPG(pool),
		patientSvc, seq, tx, now)

	products := pharmacy.NewProductRepoPG(pool)
	pharmacySvc := pharmacy.NewService(products, pharmacy.NewStockMoveRepoPG(pool),
		pharmacy.NewPrescriptionRepoPG(pool), pharmacy.NewPurchaseRepoPG(pool),
		pharmacy.NewLedger(products, tx, m), seq, tx, now,
		pharmacy.Options{AllowPaidEdit: cfg.AllowPaidEdit})
	billingSvc := billing.NewService(billing.NewServiceItemRepoPG(pool), billing.NewInvoiceRepoPG(pool),
		billing.NewClaimRepoPG(pool), insuranceSvc, pharmacySvc, pharmacySvc.Ledger(), seq, tx, now,
		billing.Options{AllowPaidEdit: cfg.AllowPaidEdit})

	payrollSvc := payroll.NewService(payroll.NewLevelRepoPG(pool), payroll.NewAllowanceRepoPG(pool),
		payroll.NewBonusRepoPG(pool), payroll.NewDeductionRepoPG(pool), payroll.NewSheetRepoPG(pool),
		payroll.NewSalaryRepoPG(pool), staffSvc, tx)

	feedbackSvc := feedback.NewService(feedback.NewFeedbackRepoPG(pool), feedback.NewComplaintRepoPG(pool),
		seq, tx, now)
	certSvc := certification.NewService(certification.NewCertificationRepoPG(pool),
		certification.NewInspectionRepoPG(pool), docs, newMailer(cfg, logger), m, tx, now)
	complianceSvc := compliance.NewService(compliance.NewRegulationRepoPG(pool),
		compliance.NewAssessmentRepoPG(pool), compliance.NewActionRepoPG(pool), now)

	runner := sweep.NewRunner(logger, m, now)
	runner.Register(sweep.Job{Name: jobPatients, Interval: cfg.PatientSweepInterval, Run: patientSvc.DischargeAbandonedOutpatients})
	runner.Register(sweep.Job{Name: jobCertifications, Interval: cfg.CertSweepInterval, Run: certSvc.UpdateStates})

	return &app{
		pool:    pool,
		metrics: m,
		sweeps:  runner,
		handlers: []routeRegistrar{
			patient.NewHandler(patientSvc),
			insurance.NewHandler(insuranceSvc),
			staff.NewHandler(staffSvc),
			facility.NewHandler(facilitySvc),
			appointment.NewHandler(appointmentSvc),
			treatment.NewHandler(treatmentSvc),
			pharmacy.NewHandler(pharmacySvc),
			billing.NewHandler(billingSvc),
			payroll.NewHandler(payrollSvc),
			feedback.NewHandler(feedbackSvc),
			certification.NewHandler(certSvc),
			compliance.NewHandler(complianceSvc),
		},
	}, nil
}

func newEcho(cfg *config.Config, logger zerolog.Logger, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "20M"))
	e.Use(a.metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))

	var authn echo.MiddlewareFunc
	if cfg.IsDev() && cfg.JWTSigningKey == "" {
		authn = auth.DevAuthMiddleware()
	} else {
		authn = auth.JWTMiddleware(auth.JWTConfig{Issuer: cfg.JWTIssuer, SigningKey: []byte(cfg.JWTSigningKey)})
	}
	api := e.Group("/api/v1", authn)
	for _, h := range a.handlers {
		h.RegisterRoutes(api)
	}
	return e
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	e := newEcho(cfg, logger, a)

	sweepsDone := make(chan struct{})
	go func() {
		defer close(sweepsDone)
		if cfg.SweepEnabled {
			logger.Info().Strs("jobs", a.sweeps.Names()).Msg("starting sweeps")
			a.sweeps.Start(ctx)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-sweepsDone
	logger.Info().Msg("server stopped")
	return nil
}
