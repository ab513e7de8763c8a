// Package account implements the signup, verification, sign-in, and message
// lifecycle of an account.
package account

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"roastradar/internal/apperr"
	"roastradar/internal/mailer"
	"roastradar/internal/models"
)

// Service coordinates the user store, the outbound mailer, and the
// verification-code source.
type Service struct {
	store   UserStore
	mail    mailer.Sender
	codeTTL time.Duration

	// Overridable in tests.
	now     func() time.Time
	newCode func() (string, error)
	newID   func() string
}

func NewService(store UserStore, mail mailer.Sender, codeTTL time.Duration) *Service {
	return &Service{
		store:   store,
		mail:    mail,
		codeTTL: codeTTL,
		now:     time.Now,
		newCode: newVerifyCode,
		newID:   newMessageID,
	}
}

// SignUp registers a new account, or restarts the signup cycle of an existing
// unverified one, and emails the verification code.
//
// The account is persisted before the email goes out; if delivery fails the
// caller sees a failure even though the pending account exists. A re-signup
// with the same email recovers by overwriting the code.
func (s *Service) SignUp(ctx context.Context, username, email, password string) error {
	taken, err := s.store.UsernameTakenByVerified(ctx, username)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "error checking username", err)
	}
	if taken {
		return apperr.New(apperr.ValidationFailed, "username is already taken")
	}

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "error checking email", err)
	}
	if existing != nil && existing.IsVerified {
		return apperr.New(apperr.ValidationFailed, "an account already exists with this email")
	}

	code, err := s.newCode()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "could not generate verification code", err)
	}
	expiry := s.now().Add(s.codeTTL)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "could not hash password", err)
	}

	if existing != nil {
		if err := s.store.ResetPending(ctx, email, string(hash), code, expiry); err != nil {
			return apperr.Wrap(apperr.Internal, "error updating pending account", err)
		}
	} else {
		newUser := &models.User{
			Username:            username,
			Email:               email,
			Password:            string(hash),
			VerifyCode:          code,
			VerifyCodeExpiry:    expiry,
			IsVerified:          false,
			IsAcceptingMessages: true,
			Messages:            []models.Message{},
		}
		if err := s.store.Insert(ctx, newUser); err != nil {
			return apperr.Wrap(apperr.Internal, "error creating account", err)
		}
	}

	if err := s.mail.Send(email, "Verify your email", mailer.VerificationBody(username, code)); err != nil {
		log.Printf("Verification email to %s failed: %v", email, err)
		return apperr.Wrap(apperr.UpstreamFailure, "failed to send verification email", err)
	}
	log.Printf("Verification email sent to %s", email)
	return nil
}

// VerifyCode checks the account's stored code and marks the account verified.
// Repeating the call with a still-matching code succeeds again with the same
// end state; the stored code is not invalidated on success.
func (s *Service) VerifyCode(ctx context.Context, username, code string) error {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "error retrieving account", err)
	}
	if user == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}

	if !s.now().Before(user.VerifyCodeExpiry) {
		return apperr.New(apperr.Expired, "verification code has expired, please sign up again to get a new code")
	}
	if user.VerifyCode != code {
		return apperr.New(apperr.Incorrect, "verification code is incorrect")
	}

	if err := s.store.MarkVerified(ctx, username); err != nil {
		return apperr.Wrap(apperr.Internal, "error saving verification", err)
	}
	return nil
}

// Authenticate resolves an identifier (username or email) and compares the
// password. Unverified accounts are rejected before the password is checked.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "error retrieving account", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthenticated, "no account matches that username or email")
	}
	if !user.IsVerified {
		return nil, apperr.New(apperr.Forbidden, "please verify your account before signing in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Unauthenticated, "incorrect password")
	}
	return user, nil
}

// UsernameAvailable reports whether a username is free. Only verified
// accounts block a name; a pending signup does not reserve it.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.store.UsernameTakenByVerified(ctx, username)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "error checking username", err)
	}
	return !taken, nil
}
