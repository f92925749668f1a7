package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const sessionCookieName = "session_token"

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id threaded by the session guard.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// requireSession resolves the session cookie before letting the request
// through. Browsers without a live session are bounced to /login.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			redirect(w, r, "/login")
			return
		}

		userID, err := s.auth.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			clearSessionCookie(w)
			redirect(w, r, "/login")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")
	confirm := r.Form.Get("confirm_password")

	if err := s.auth.SignUp(r.Context(), username, password, confirm); err != nil {
		writeError(w, r, err)
		return
	}

	redirect(w, r, "/login")
}

func (s *Server) handleLogIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	// A prior session on this browser is replaced, not stacked
	priorToken := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		priorToken = cookie.Value
	}

	session, err := s.auth.LogIn(r.Context(), username, password, priorToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	redirect(w, r, "/")
}

func (s *Server) handleLogOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.auth.LogOut(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to delete session", "error", err)
		}
	}

	clearSessionCookie(w)
	redirect(w, r, "/login")
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
