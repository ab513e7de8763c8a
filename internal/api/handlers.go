// Package api exposes the REST surface of the service.
package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"roastradar/internal/account"
	"roastradar/internal/apperr"
	"roastradar/internal/ratelimit"
	"roastradar/internal/session"
	"roastradar/internal/suggest"
)

// Server holds the dependencies shared by all route handlers.
type Server struct {
	accounts  *account.Service
	sessions  *session.Manager
	limiter   *ratelimit.Limiter
	generator suggest.Generator
	validate  *validator.Validate
}

func NewServer(accounts *account.Service, sessions *session.Manager, limiter *ratelimit.Limiter, generator suggest.Generator) *Server {
	return &Server{
		accounts:  accounts,
		sessions:  sessions,
		limiter:   limiter,
		generator: generator,
		validate:  newValidator(),
	}
}

// Router registers every endpoint on a new Gorilla Mux router.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/sign-up", s.signUp).Methods(http.MethodPost)
	api.HandleFunc("/sign-in", s.signIn).Methods(http.MethodPost)
	api.HandleFunc("/verify-code", s.verifyCode).Methods(http.MethodPost)
	api.HandleFunc("/check-username", s.checkUsername).Methods(http.MethodGet)

	api.HandleFunc("/accept-messages", s.requireSession(s.getAcceptMessages)).Methods(http.MethodGet)
	api.HandleFunc("/accept-messages", s.requireSession(s.postAcceptMessages)).Methods(http.MethodPost)
	api.HandleFunc("/send-message", s.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/get-messages", s.requireSession(s.getMessages)).Methods(http.MethodGet)
	api.HandleFunc("/delete-message/{messageID}", s.requireSession(s.deleteMessage)).Methods(http.MethodDelete)

	api.HandleFunc("/suggest-messages", s.suggestMessages).Methods(http.MethodPost)

	return router
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.accounts.SignUp(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "account registered, please verify your email", nil)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.accounts.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.sessions.Issue(user.ID.Hex(), user.Username, user.IsVerified, user.IsAcceptingMessages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "signed in", map[string]string{"token": token})
}

func (s *Server) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	// The username may arrive URI-encoded from the verification link.
	username, err := url.QueryUnescape(req.Username)
	if err != nil {
		username = req.Username
	}
	if err := s.accounts.VerifyCode(r.Context(), username, req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "account verified successfully", nil)
}

func (s *Server) checkUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if !usernameRe.MatchString(username) || len(username) < 3 || len(username) > 20 {
		writeError(w, apperr.New(apperr.ValidationFailed, "invalid username"))
		return
	}
	available, err := s.accounts.UsernameAvailable(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	if !available {
		writeError(w, apperr.New(apperr.ValidationFailed, "username already exists"))
		return
	}
	writeSuccess(w, http.StatusOK, "username is unique", nil)
}

func (s *Server) getAcceptMessages(w http.ResponseWriter, r *http.Request) {
	claims := currentSession(r.Context())
	accepting, err := s.accounts.AcceptingMessages(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]bool{"isAcceptingMessages": accepting})
}

func (s *Server) postAcceptMessages(w http.ResponseWriter, r *http.Request) {
	claims := currentSession(r.Context())
	var req acceptMessagesRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	accepting, err := s.accounts.SetAcceptingMessages(r.Context(), claims.UserID, req.AcceptMessages)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "message acceptance status updated", map[string]bool{"isAcceptingMessages": accepting})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.accounts.SendMessage(r.Context(), req.Username, req.Content); err != nil {
		writeError(w, err)
		return
	}
	// The message content is deliberately not echoed back.
	writeSuccess(w, http.StatusOK, "message sent successfully", nil)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	claims := currentSession(r.Context())
	messages, err := s.accounts.Messages(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"messages": messages})
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	claims := currentSession(r.Context())
	messageID := mux.Vars(r)["messageID"]
	if err := s.accounts.DeleteMessage(r.Context(), claims.UserID, messageID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "message deleted", nil)
}

func (s *Server) suggestMessages(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if ok, retryAfter := s.limiter.Allow(ip); !ok {
		writeError(w, apperr.RateLimitedFor(retryAfter))
		return
	}

	text, err := s.generator.Generate(r.Context(), suggest.DefaultPrompt)
	// The call counts against the quota whether or not it succeeded.
	s.limiter.Count(ip)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string][]string{
		"suggestions": suggest.ParseSuggestions(text),
	})
}

// clientIP buckets by the first forwarded-for hop. Callers with no traceable
// IP share a single "unknown" quota.
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return "unknown"
	}
	if i := strings.Index(forwarded, ","); i >= 0 {
		forwarded = forwarded[:i]
	}
	return strings.TrimSpace(forwarded)
}
