package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fleetdash/internal/auth"
	"fleetdash/internal/core"
	applog "fleetdash/internal/log"
	"fleetdash/internal/middleware/ratelimit"
	"fleetdash/internal/middleware/security"
	"fleetdash/internal/middleware/trace"
	"fleetdash/internal/services"
	appweb "fleetdash/web"
)

const defaultStoreTimeout = 7 * time.Second

// Dashboard is the business surface behind the dashboard routes.
type Dashboard interface {
	Search(ctx context.Context, driverID string) (core.DriverSummary, error)
	RecordPayment(ctx context.Context, req services.PaymentRequest) (services.PaymentResult, error)
	Ready(ctx context.Context) error
}

var _ Dashboard = (*services.DashboardService)(nil)

// Options wires the server's collaborators. Dashboard, Checker and Sessions
// are required; a nil Limiter disables payment rate limiting.
type Options struct {
	Dashboard Dashboard
	Checker   auth.CredentialChecker
	Sessions  *auth.SessionManager
	Limiter   *ratelimit.Limiter
	Detector  *security.Detector
	Logger    *applog.Logger

	// DateMin and DateMax bound the payment date picker (YYYY-MM-DD).
	DateMin string
	DateMax string

	StoreTimeout time.Duration
}

type Server struct {
	http.Server
	templates *template.Template

	dashboard Dashboard
	checker   auth.CredentialChecker
	sessions  *auth.SessionManager
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware

	logger *applog.Logger
	events *applog.StructuredLogger

	dateMin      string
	dateMax      string
	storeTimeout time.Duration
	started      time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := opts.Detector
	if detector == nil {
		detector = security.NewDetector()
	}
	storeTimeout := opts.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}

	s := &Server{
		dashboard:    opts.Dashboard,
		checker:      opts.Checker,
		sessions:     opts.Sessions,
		limiter:      opts.Limiter,
		detector:     detector,
		tracer:       trace.NewMiddleware(logger, detector.ExtractClientIP),
		logger:       logger,
		events:       applog.NewStructuredLogger(logger),
		dateMin:      opts.DateMin,
		dateMax:      opts.DateMax,
		storeTimeout: storeTimeout,
		started:      time.Now(),
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	page := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }

	mux.Handle("/", page(s.handleIndex))
	mux.Handle("/login", page(s.handleLogin))
	mux.Handle("/logout", page(s.handleLogout))
	mux.Handle("/ui/driver", page(s.requireSession(s.handleDriverPanel)))
	mux.Handle("/ui/balance-chart.png", page(s.requireSession(s.handleBalanceChart)))

	var payments http.Handler = page(s.requireSession(s.handleRecordPayment))
	if s.limiter != nil {
		payments = s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(payments)
	}
	mux.Handle("/payments", payments)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = detector.Middleware(logger)(handler)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(m core.Money) string { return m.String() },
	}
	return template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// requireSession answers 401 with HX-Redirect to the login view when the
// request carries no valid session.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.LoggedIn(r) {
			UnauthorizedError().Write(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").
		Header("HX-Retarget", "#notification").
		Header("HX-Reswap", "innerHTML").
		Write(w)
}

func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Shutdown gracefully shuts down the server. Background loops (cache
// janitor, rate limiter cleanup) are owned by the caller's errgroup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
