package http

import (
	"errors"
	"net/http"

	"fleetdash/internal/auth"
	applog "fleetdash/internal/log"
)

// MsgInvalidCredentials is shown on the login view after a rejected attempt.
const MsgInvalidCredentials = "Invalid Credentials. Try again."

type loginView struct {
	Error string
}

// handleIndex routes GET / and GET /dashboard to the login or dashboard view
// depending on the session.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/dashboard" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	claims, err := s.sessions.FromRequest(r)
	if err != nil {
		s.renderLogin(w, r, http.StatusOK, "")
		return
	}
	s.renderDashboard(w, r, claims.Subject, r.URL.Query().Get("driver_id"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	form, err := ParseLoginForm(r)
	if err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}

	clientIP := s.detector.ExtractClientIP(r)
	if err := s.checker.Check(r.Context(), form.Username, form.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.events.LogError(r.Context(), "Credential check failed", err, applog.OpLogin, nil)
		}
		s.events.LogLogin(r.Context(), form.Username, clientIP, false)
		s.sessions.Clear(w)
		s.renderLogin(w, r, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}

	if err := s.sessions.Issue(w, form.Username); err != nil {
		s.events.LogError(r.Context(), "Failed to issue session", err, applog.OpLogin, nil)
		InternalServerError("Could not log in. Please try again.").Write(w)
		return
	}
	s.events.LogLogin(r.Context(), form.Username, clientIP, true)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	s.sessions.Clear(w)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Logged out", applog.FieldOperation, applog.OpLogout)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "login.html", loginView{Error: msg})
}
