package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"fleetdash/internal/core"
	applog "fleetdash/internal/log"
	"fleetdash/internal/report"
)

// driverView feeds the dashboard page and the driver panel partial.
type driverView struct {
	Username string
	DriverID string
	Summary  core.DriverSummary
	Message  string
	Error    string

	DateMin string
	DateMax string
	Today   string

	// ChartVersion busts the browser cache of the balance chart after a payment.
	ChartVersion int
}

func (s *Server) newDriverView(driverID string, sum core.DriverSummary) driverView {
	today := time.Now().Format(core.DateLayout)
	if s.dateMax != "" && today > s.dateMax {
		today = s.dateMax
	}
	if s.dateMin != "" && today < s.dateMin {
		today = s.dateMin
	}
	return driverView{
		DriverID:     core.NormalizeDriverID(driverID),
		Summary:      sum,
		DateMin:      s.dateMin,
		DateMax:      s.dateMax,
		Today:        today,
		ChartVersion: len(sum.Records),
	}
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, username, driverID string) {
	sum, err := s.search(r, driverID)
	if err != nil {
		InternalServerError("Could not load driver records.").Write(w)
		return
	}
	view := s.newDriverView(driverID, sum)
	view.Username = username
	s.render(w, r, http.StatusOK, "dashboard.html", view)
}

// handleDriverPanel renders the driver panel partial for ?driver_id=.
func (s *Server) handleDriverPanel(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	driverID := r.URL.Query().Get("driver_id")
	sum, err := s.search(r, driverID)
	if err != nil {
		InternalServerError("Could not load driver records.").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "driver_panel", s.newDriverView(driverID, sum))
}

// handleBalanceChart renders the driver's remaining balance per record as PNG.
func (s *Server) handleBalanceChart(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	sum, err := s.search(r, r.URL.Query().Get("driver_id"))
	if err != nil {
		InternalServerError("Could not load driver records.").Write(w)
		return
	}
	if !sum.Found {
		NotFoundError("No records for this driver.").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderBalanceChart(&buf, sum); err != nil {
		if errors.Is(err, report.ErrNoRecords) {
			NotFoundError("No records for this driver.").Write(w)
			return
		}
		s.events.LogError(r.Context(), "Balance chart render failed", err, applog.OpRender,
			applog.NewFields().WithDriver(sum.DriverID))
		InternalServerError("Could not render chart.").Write(w)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) search(r *http.Request, driverID string) (core.DriverSummary, error) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	sum, err := s.dashboard.Search(ctx, driverID)
	if err != nil {
		s.events.LogError(ctx, "Driver search failed", err, applog.OpSearch,
			applog.NewFields().WithDriver(core.NormalizeDriverID(driverID)))
		return core.DriverSummary{}, err
	}
	applog.FromContext(ctx).DebugContext(ctx, "Driver search",
		applog.FieldDriverID, sum.DriverID,
		applog.FieldRecordsFound, len(sum.Records))
	return sum, nil
}

// render executes a named template into a buffer so a failed execution never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, applog.OpRender,
			applog.LogFields{"template": name})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
