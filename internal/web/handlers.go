package web

import (
	"errors"
	"net/http"

	"github.com/adrianmcphee/ninjadb"
	"github.com/adrianmcphee/ninjadb/internal/game"
	"go.uber.org/zap"
)

type pageData struct {
	User      *game.User
	SecretMax int
	Message   string
	Users     []*game.User
	Player    *game.User
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) render(w http.ResponseWriter, page string, data pageData) {
	data.SecretMax = s.game.SecretMax()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates[page].ExecuteTemplate(w, page, data); err != nil {
		s.logger.Error("failed to render template", zap.String("page", page), zap.Error(err))
	}
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeText(w, http.StatusInternalServerError, "Internal server error")
}

// currentUser resolves the session cookie. It redirects to the index and
// returns nil when there is no active session.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) *game.User {
	user, err := s.game.Current(r.Context(), sessionToken(r))
	if err != nil {
		s.serverError(w, r, err)
		return nil
	}
	if user == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
	return user
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, err := s.game.Current(r.Context(), sessionToken(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, "index.html", pageData{User: user})
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}

	user, err := s.game.Login(r.Context(),
		r.PostForm.Get("user-name"),
		r.PostForm.Get("user-email"),
		r.PostForm.Get("user-password"))
	if errors.Is(err, game.ErrWrongPassword) {
		writeText(w, http.StatusOK, game.MsgWrongPassword)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.setSession(w, *user.SessionToken)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout handles GET /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.game.Logout(r.Context(), sessionToken(r)); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.clearSession(w)
	s.render(w, "index.html", pageData{})
}

// handleResult handles POST /result
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}

	res, err := s.game.Guess(r.Context(), sessionToken(r), r.PostForm.Get("guess"))
	switch {
	case errors.Is(err, game.ErrNoSession):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, game.ErrInvalidGuess):
		writeText(w, http.StatusBadRequest, "Your guess must be a whole number.")
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	user, err := s.game.Current(r.Context(), sessionToken(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, "result.html", pageData{User: user, Message: res.Message})
}

// handleProfile handles GET /profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if user := s.currentUser(w, r); user != nil {
		s.render(w, "profile.html", pageData{User: user})
	}
}

// handleProfileEditForm handles GET /profile/edit
func (s *Server) handleProfileEditForm(w http.ResponseWriter, r *http.Request) {
	if user := s.currentUser(w, r); user != nil {
		s.render(w, "profile_edit.html", pageData{User: user})
	}
}

// handleProfileEdit handles POST /profile/edit
func (s *Server) handleProfileEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}

	_, err := s.game.UpdateProfile(r.Context(), sessionToken(r),
		r.PostForm.Get("profile-name"),
		r.PostForm.Get("profile-email"))
	switch {
	case errors.Is(err, game.ErrNoSession):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case err != nil:
		s.serverError(w, r, err)
	default:
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
	}
}

// handleProfileDeleteForm handles GET /profile/delete
func (s *Server) handleProfileDeleteForm(w http.ResponseWriter, r *http.Request) {
	if user := s.currentUser(w, r); user != nil {
		s.render(w, "profile_delete.html", pageData{User: user})
	}
}

// handleProfileDelete handles POST /profile/delete
func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	err := s.game.DeleteAccount(r.Context(), sessionToken(r))
	if err != nil && !errors.Is(err, game.ErrNoSession) {
		s.serverError(w, r, err)
		return
	}
	s.clearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleUsers handles GET /users
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.game.Users().Active(r.Context(), 0)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	user, err := s.game.Current(r.Context(), sessionToken(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, "users.html", pageData{User: user, Users: users})
}

// handleUser handles GET /user/{id}
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	player, err := s.game.Users().ByID(r.Context(), r.PathValue("id"))
	if ninjadb.IsNotFound(err) || errors.Is(err, ninjadb.ErrInvalidID) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	user, err := s.game.Current(r.Context(), sessionToken(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, "user.html", pageData{User: user, Player: player})
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeText(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeText(w, http.StatusOK, "ok")
}
