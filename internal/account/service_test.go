package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"roastradar/internal/apperr"
	"roastradar/internal/models"
)

// fakeStore is an in-memory UserStore for service tests.
type fakeStore struct {
	users map[string]*models.User // keyed by hex id
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*models.User)}
}

func (f *fakeStore) add(u *models.User) *models.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.users[u.ID.Hex()] = u
	return u
}

func (f *fakeStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if u, _ := f.FindByUsername(ctx, identifier); u != nil {
		return u, nil
	}
	return f.FindByEmail(ctx, identifier)
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) UsernameTakenByVerified(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username && u.IsVerified {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Insert(_ context.Context, u *models.User) error {
	f.add(u)
	return nil
}

func (f *fakeStore) ResetPending(ctx context.Context, email, passwordHash, code string, expiry time.Time) error {
	u, _ := f.FindByEmail(ctx, email)
	if u == nil {
		return errors.New("no such account")
	}
	u.Password = passwordHash
	u.VerifyCode = code
	u.VerifyCodeExpiry = expiry
	return nil
}

func (f *fakeStore) MarkVerified(ctx context.Context, username string) error {
	u, _ := f.FindByUsername(ctx, username)
	if u == nil {
		return errors.New("no such account")
	}
	u.IsVerified = true
	return nil
}

func (f *fakeStore) SetAcceptingMessages(_ context.Context, id string, accepting bool) (*models.User, error) {
	u := f.users[id]
	if u == nil {
		return nil, nil
	}
	u.IsAcceptingMessages = accepting
	return u, nil
}

func (f *fakeStore) AppendMessage(_ context.Context, id string, msg models.Message) error {
	u := f.users[id]
	if u == nil {
		return errors.New("no such account")
	}
	u.Messages = append(u.Messages, msg)
	return nil
}

func (f *fakeStore) RemoveMessage(_ context.Context, id, messageID string) (bool, error) {
	u := f.users[id]
	if u == nil {
		return false, nil
	}
	for i, m := range u.Messages {
		if m.ID == messageID {
			u.Messages = append(u.Messages[:i], u.Messages[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeMailer records deliveries and optionally fails them.
type fakeMailer struct {
	fail bool
	sent []string
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	if m.fail {
		return errors.New("smtp refused")
	}
	m.sent = append(m.sent, to)
	return nil
}

func newTestService(store *fakeStore, mail *fakeMailer) *Service {
	svc := NewService(store, mail, time.Hour)
	svc.newCode = func() (string, error) { return "123456", nil }
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("msg-%d", seq)
	}
	return svc
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSignUpNewAccount(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	mail := &fakeMailer{}
	svc := newTestService(store, mail)

	req.NoError(svc.SignUp(context.Background(), "renarde", "renarde@example.com", "hunter22"))

	u, _ := store.FindByUsername(context.Background(), "renarde")
	req.NotNil(u)
	req.False(u.IsVerified)
	req.True(u.IsAcceptingMessages)
	req.Equal("123456", u.VerifyCode)
	req.Equal([]string{"renarde@example.com"}, mail.sent)
}

func TestSignUpVerifiedUsernameTaken(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	store.add(&models.User{Username: "renarde", Email: "other@example.com", IsVerified: true})
	svc := newTestService(store, &fakeMailer{})

	err := svc.SignUp(context.Background(), "renarde", "new@example.com", "hunter22")
	req.Error(err)
	req.Equal(apperr.ValidationFailed, apperr.KindOf(err))
}

func TestSignUpUnverifiedReRegisterOverwrites(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	store.add(&models.User{
		Username:         "renarde",
		Email:            "renarde@example.com",
		Password:         "old-hash",
		VerifyCode:       "999999",
		VerifyCodeExpiry: time.Now().Add(-time.Minute),
	})
	svc := newTestService(store, &fakeMailer{})

	req.NoError(svc.SignUp(context.Background(), "renarde", "renarde@example.com", "newpass22"))

	u, _ := store.FindByEmail(context.Background(), "renarde@example.com")
	req.Equal("123456", u.VerifyCode)
	req.NotEqual("old-hash", u.Password)
	req.True(u.VerifyCodeExpiry.After(time.Now()))
}

func TestSignUpEmailFailureLeavesRecoverablePendingAccount(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	mail := &fakeMailer{fail: true}
	svc := newTestService(store, mail)

	err := svc.SignUp(context.Background(), "renarde", "renarde@example.com", "hunter22")
	req.Error(err)
	req.Equal(apperr.UpstreamFailure, apperr.KindOf(err))

	// The pending account was persisted before the email failed.
	u, _ := store.FindByEmail(context.Background(), "renarde@example.com")
	req.NotNil(u)
	req.False(u.IsVerified)

	// A re-signup with the same email recovers once delivery works again.
	mail.fail = false
	req.NoError(svc.SignUp(context.Background(), "renarde", "renarde@example.com", "hunter22"))
	req.Equal([]string{"renarde@example.com"}, mail.sent)
}

func TestVerifyCode(t *testing.T) {
	ctx := context.Background()

	setup := func(code string, expiry time.Time) (*Service, *fakeStore) {
		store := newFakeStore()
		store.add(&models.User{
			Username:         "renarde",
			Email:            "renarde@example.com",
			VerifyCode:       code,
			VerifyCodeExpiry: expiry,
		})
		return newTestService(store, &fakeMailer{}), store
	}

	t.Run("matching unexpired code verifies the account", func(t *testing.T) {
		req := require.New(t)
		svc, store := setup("123456", time.Now().Add(time.Hour))

		req.NoError(svc.VerifyCode(ctx, "renarde", "123456"))
		u, _ := store.FindByUsername(ctx, "renarde")
		req.True(u.IsVerified)
	})

	t.Run("repeat call with the still-matching code is idempotent", func(t *testing.T) {
		req := require.New(t)
		svc, store := setup("123456", time.Now().Add(time.Hour))

		req.NoError(svc.VerifyCode(ctx, "renarde", "123456"))
		req.NoError(svc.VerifyCode(ctx, "renarde", "123456"))
		u, _ := store.FindByUsername(ctx, "renarde")
		req.True(u.IsVerified)
	})

	t.Run("expired matching code is Expired, never Incorrect", func(t *testing.T) {
		req := require.New(t)
		svc, store := setup("123456", time.Now().Add(-time.Minute))

		err := svc.VerifyCode(ctx, "renarde", "123456")
		req.Error(err)
		req.Equal(apperr.Expired, apperr.KindOf(err))
		u, _ := store.FindByUsername(ctx, "renarde")
		req.False(u.IsVerified)
	})

	t.Run("wrong code is Incorrect", func(t *testing.T) {
		req := require.New(t)
		svc, _ := setup("123456", time.Now().Add(time.Hour))

		err := svc.VerifyCode(ctx, "renarde", "654321")
		req.Error(err)
		req.Equal(apperr.Incorrect, apperr.KindOf(err))
	})

	t.Run("unknown username is NotFound", func(t *testing.T) {
		req := require.New(t)
		svc, _ := setup("123456", time.Now().Add(time.Hour))

		err := svc.VerifyCode(ctx, "nobody", "123456")
		req.Error(err)
		req.Equal(apperr.NotFound, apperr.KindOf(err))
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)

	store := newFakeStore()
	store.add(&models.User{
		Username:   "renarde",
		Email:      "renarde@example.com",
		Password:   hashOf(t, "hunter22"),
		IsVerified: true,
	})
	store.add(&models.User{
		Username: "pending",
		Email:    "pending@example.com",
		Password: hashOf(t, "hunter22"),
	})
	svc := newTestService(store, &fakeMailer{})

	u, err := svc.Authenticate(ctx, "renarde", "hunter22")
	req.NoError(err)
	req.Equal("renarde", u.Username)

	// Email works as identifier too.
	_, err = svc.Authenticate(ctx, "renarde@example.com", "hunter22")
	req.NoError(err)

	_, err = svc.Authenticate(ctx, "renarde", "wrong")
	req.Equal(apperr.Unauthenticated, apperr.KindOf(err))

	_, err = svc.Authenticate(ctx, "nobody", "hunter22")
	req.Equal(apperr.Unauthenticated, apperr.KindOf(err))

	// Unverified accounts are gated regardless of password correctness.
	_, err = svc.Authenticate(ctx, "pending", "hunter22")
	req.Equal(apperr.Forbidden, apperr.KindOf(err))
	_, err = svc.Authenticate(ctx, "pending", "wrong")
	req.Equal(apperr.Forbidden, apperr.KindOf(err))
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown target is NotFound, never Forbidden", func(t *testing.T) {
		svc := newTestService(newFakeStore(), &fakeMailer{})
		err := svc.SendMessage(ctx, "ghost", "hello")
		require.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})

	t.Run("closed target is Forbidden, never NotFound", func(t *testing.T) {
		store := newFakeStore()
		store.add(&models.User{Username: "renarde", IsAcceptingMessages: false})
		svc := newTestService(store, &fakeMailer{})
		err := svc.SendMessage(ctx, "renarde", "hello")
		require.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	})

	t.Run("open target receives the message with server-assigned fields", func(t *testing.T) {
		req := require.New(t)
		store := newFakeStore()
		u := store.add(&models.User{Username: "renarde", IsAcceptingMessages: true})
		svc := newTestService(store, &fakeMailer{})

		req.NoError(svc.SendMessage(ctx, "renarde", "hello"))
		req.Len(u.Messages, 1)
		req.Equal("hello", u.Messages[0].Content)
		req.NotEmpty(u.Messages[0].ID)
		req.False(u.Messages[0].CreatedAt.IsZero())
	})
}

func TestMessagesOrdering(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	u := store.add(&models.User{
		Username: "renarde",
		Messages: []models.Message{
			{ID: "m1", Content: "first", CreatedAt: base},
			{ID: "m2", Content: "second", CreatedAt: base.Add(time.Second)},
			{ID: "m3", Content: "third", CreatedAt: base.Add(2 * time.Second)},
		},
	})
	svc := newTestService(store, &fakeMailer{})

	msgs, err := svc.Messages(context.Background(), u.ID.Hex())
	req.NoError(err)
	req.Equal([]string{"m3", "m2", "m1"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestMessagesOrderingStableOnTies(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	ts := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	u := store.add(&models.User{
		Username: "renarde",
		Messages: []models.Message{
			{ID: "a", CreatedAt: ts},
			{ID: "b", CreatedAt: ts},
			{ID: "c", CreatedAt: ts},
		},
	})
	svc := newTestService(store, &fakeMailer{})

	msgs, err := svc.Messages(context.Background(), u.ID.Hex())
	req.NoError(err)
	// Second-granularity ties keep insertion order.
	req.Equal([]string{"a", "b", "c"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestDeleteMessageTwice(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	u := store.add(&models.User{
		Username: "renarde",
		Messages: []models.Message{{ID: "m1", Content: "hello", CreatedAt: time.Now()}},
	})
	svc := newTestService(store, &fakeMailer{})
	ctx := context.Background()

	req.NoError(svc.DeleteMessage(ctx, u.ID.Hex(), "m1"))

	err := svc.DeleteMessage(ctx, u.ID.Hex(), "m1")
	req.Error(err)
	req.Equal(apperr.NotFound, apperr.KindOf(err))
}

func TestAcceptingMessagesToggle(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	u := store.add(&models.User{Username: "renarde", IsAcceptingMessages: true})
	svc := newTestService(store, &fakeMailer{})
	ctx := context.Background()

	accepting, err := svc.AcceptingMessages(ctx, u.ID.Hex())
	req.NoError(err)
	req.True(accepting)

	accepting, err = svc.SetAcceptingMessages(ctx, u.ID.Hex(), false)
	req.NoError(err)
	req.False(accepting)

	accepting, err = svc.AcceptingMessages(ctx, u.ID.Hex())
	req.NoError(err)
	req.False(accepting)
}

func TestUsernameAvailable(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	store.add(&models.User{Username: "taken", IsVerified: true})
	store.add(&models.User{Username: "pending", IsVerified: false})
	svc := newTestService(store, &fakeMailer{})
	ctx := context.Background()

	free, err := svc.UsernameAvailable(ctx, "taken")
	req.NoError(err)
	req.False(free)

	// A pending signup does not reserve the name.
	free, err = svc.UsernameAvailable(ctx, "pending")
	req.NoError(err)
	req.True(free)

	free, err = svc.UsernameAvailable(ctx, "fresh")
	req.NoError(err)
	req.True(free)
}
