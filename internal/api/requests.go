package api

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"

	"roastradar/internal/apperr"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// newValidator builds the request validator with the custom username rule:
// 3-20 characters, letters, digits, and underscores only.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

type signUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type signInRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type verifyCodeRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

type acceptMessagesRequest struct {
	AcceptMessages bool `json:"acceptMessages"`
}

type sendMessageRequest struct {
	Username string `json:"username" validate:"required"`
	Content  string `json:"content" validate:"required,max=500"`
}

// decodeAndValidate parses the JSON body into dst and applies its validate tags.
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.ValidationFailed, "invalid request payload")
	}
	if err := s.validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.ValidationFailed, "invalid request", err)
	}
	return nil
}
