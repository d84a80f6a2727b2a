package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/assignment"
	"rollcall/internal/auth"
	"rollcall/internal/checkin"
	"rollcall/internal/config"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/mailer"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/store"
	"rollcall/internal/store/memstore"
)

var (
	scanTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_checkin_scans_total",
		Help: "QR scan attempts by result.",
	}, []string{"result"})
	verifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_checkin_verifies_total",
		Help: "OTP verification attempts by result.",
	}, []string{"result"})
	reassignTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_reassign_rounds_total",
		Help: "Completed reassignment rounds.",
	})
)

func init() {
	prometheus.MustRegister(scanTotal, verifyTotal, reassignTotal)
}

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	var (
		rosterStore roster.Store
		asgStore    assignment.Store
		otpStore    checkin.OTPStore
		db          *store.DB
	)
	if cfg.StoreBackend == "memory" {
		mem := memstore.Open()
		rosterStore, asgStore, otpStore = mem, mem, mem
		log.Println("using in-memory store")
	} else {
		var err error
		db, err = store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		rosterStore = roster.NewRepository(db.Client)
		asgStore = assignment.NewRepository(db.Client)
		otpStore = checkin.NewRepository(db.Client)
	}

	if err := roster.SeedDefaultVenues(ctx, rosterStore); err != nil {
		log.Printf("warning: venue seeding failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:mail")
	}

	notifier := mailer.OTPNotifier{M: mailer.NewQueueMailer(q), From: cfg.MailFrom}

	var rng *rand.Rand
	if cfg.ShuffleSeed != 0 {
		rng = rand.New(rand.NewSource(cfg.ShuffleSeed))
	}
	sweeper := assignment.NewSweeper(asgStore, cfg.ExpiryTTL)
	engine := assignment.NewEngine(asgStore, rosterStore, sweeper, rng)
	checkins := checkin.NewService(rosterStore, otpStore, asgStore, notifier, cfg.OTPTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db == nil || db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/stations/register", func(c *gin.Context) {
		var req struct {
			StationID string `json:"station_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, exp, err := auth.IssueStation(req.StationID, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.StationTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"access_token": token, "expires_at": exp.Unix()})
	})

	admin := r.Group("/v1", auth.StationAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	admin.GET("/venues", func(c *gin.Context) {
		venues, err := rosterStore.ListVenues(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"venues": venues})
	})

	admin.POST("/venues", func(c *gin.Context) {
		var req struct {
			Name       string `json:"name" binding:"required"`
			Required   bool   `json:"required"`
			StaffCount int    `json:"staff_count"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, err := rosterStore.CreateVenue(c.Request.Context(), roster.Venue{
			Name:       req.Name,
			Required:   req.Required,
			StaffCount: req.StaffCount,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, v)
	})

	// Name is immutable; only staffing settings can change.
	admin.PATCH("/venues/:id", func(c *gin.Context) {
		var req struct {
			Required   *bool `json:"required" binding:"required"`
			StaffCount int   `json:"staff_count" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		err := rosterStore.UpdateVenueStaffing(c.Request.Context(), id, *req.Required, req.StaffCount)
		switch {
		case errors.Is(err, roster.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "venue not found"})
		case errors.Is(err, roster.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.Status(http.StatusNoContent)
		}
	})

	admin.GET("/teachers", func(c *gin.Context) {
		teachers, err := rosterStore.ListTeachers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"teachers": teachers})
	})

	admin.POST("/guests", func(c *gin.Context) {
		var req struct {
			Name       string `json:"name" binding:"required"`
			Department string `json:"department" binding:"required"`
			Gender     string `json:"gender"`
			Phone      string `json:"phone"`
			Email      string `json:"email" binding:"required,email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		guest, err := rosterStore.CreateTeacher(c.Request.Context(), roster.Teacher{
			Name:       req.Name,
			Department: req.Department,
			Gender:     req.Gender,
			Phone:      req.Phone,
			Email:      req.Email,
			Temporary:  true,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, guest)
	})

	admin.POST("/teachers/import", func(c *gin.Context) {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()

		teachers, err := roster.ParseTeachersXLSX(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rosterStore.BulkUpsertTeachers(c.Request.Context(), teachers); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"imported": len(teachers)})
	})

	admin.GET("/teachers/template", func(c *gin.Context) {
		c.Header("Content-Disposition", `attachment; filename="teacher_template.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := roster.WriteTemplateXLSX(c.Writer); err != nil {
			log.Printf("template download failed: %v", err)
		}
	})

	admin.POST("/assignments/reassign", func(c *gin.Context) {
		if err := engine.ReassignAll(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reassignment failed, retry"})
			return
		}
		reassignTotal.Inc()
		records, err := asgStore.List(c.Request.Context(), assignment.Filter{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"assignments": records})
	})

	admin.GET("/assignments", func(c *gin.Context) {
		if err := sweeper.Sweep(c.Request.Context()); err != nil {
			log.Printf("sweep before listing failed: %v", err)
		}
		f := assignment.Filter{Venue: c.Query("venue")}
		if s := c.Query("status"); s != "" && s != "All" {
			f.Status = assignment.Status(s)
		}
		records, err := asgStore.List(c.Request.Context(), f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"assignments": records,
			"counts":      assignment.Count(records),
		})
	})

	admin.PUT("/assignments/attendance", func(c *gin.Context) {
		var req struct {
			PresentIDs []int64 `json:"present_ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := asgStore.SetPresent(c.Request.Context(), req.PresentIDs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	admin.GET("/attendance/export", func(c *gin.Context) {
		if err := sweeper.Sweep(c.Request.Context()); err != nil {
			log.Printf("sweep before export failed: %v", err)
		}
		records, err := asgStore.List(c.Request.Context(), assignment.Filter{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="attendance_list.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := assignment.WriteAttendanceXLSX(c.Writer, records); err != nil {
			log.Printf("attendance export failed: %v", err)
		}
	})

	// Check-in endpoints are public: teachers hit them from their own phones
	// after scanning a venue QR code.
	public := r.Group("/v1/checkin",
		httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	public.POST("/scan", func(c *gin.Context) {
		var req struct {
			TeacherID string `json:"teacher_id" binding:"required"`
			Email     string `json:"email" binding:"required,email"`
			VenueID   int64  `json:"venue_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sess, err := checkins.Scan(c.Request.Context(), req.TeacherID, req.Email, req.VenueID)
		if err != nil {
			if errors.Is(err, checkin.ErrNotFound) {
				scanTotal.WithLabelValues("rejected").Inc()
				c.JSON(http.StatusNotFound, gin.H{"error": "Invalid Teacher ID or Email"})
				return
			}
			scanTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		token, err := auth.IssueSession(sess, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.SessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session issue failed"})
			return
		}
		scanTotal.WithLabelValues("issued").Inc()
		c.JSON(http.StatusOK, gin.H{"session_token": token})
	})

	public.POST("/verify", func(c *gin.Context) {
		var req struct {
			SessionToken string `json:"session_token" binding:"required"`
			Code         string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sess, err := auth.ParseSession(req.SessionToken, cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		switch err := checkins.Verify(c.Request.Context(), sess, req.Code); {
		case errors.Is(err, checkin.ErrInvalidOTP):
			verifyTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect or Expired OTP"})
		case errors.Is(err, checkin.ErrNoAssignment):
			verifyTotal.WithLabelValues("no_assignment").Inc()
			c.JSON(http.StatusOK, gin.H{"marked": false, "message": "No assignment found for this venue!"})
		case errors.Is(err, checkin.ErrNotFound):
			verifyTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
		case err != nil:
			verifyTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed, retry"})
		default:
			verifyTotal.WithLabelValues("marked").Inc()
			c.JSON(http.StatusOK, gin.H{"marked": true, "message": "Attendance Marked Successfully!"})
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
