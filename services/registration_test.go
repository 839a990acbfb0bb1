package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/otpstore"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type registrationFixture struct {
	svc       *RegistrationService
	users     *fakeUserRepo
	pending   *otpstore.MemoryStore[PendingRegistration]
	codes     *otpstore.MemoryStore[OneTimeCode]
	delivery  *fakeDelivery
	clock     *fakeClock
	publisher *events.RecordingPublisher
}

func newRegistrationFixture(autoProvision bool) *registrationFixture {
	clock := newFakeClock()
	f := &registrationFixture{
		users:     newFakeUserRepo(),
		pending:   otpstore.NewMemoryStore[PendingRegistration](clock.Now),
		codes:     otpstore.NewMemoryStore[OneTimeCode](clock.Now),
		delivery:  newFakeDelivery(),
		clock:     clock,
		publisher: events.NewRecordingPublisher(),
	}
	tokens := utils.NewTokenIssuer("test-secret", "gyanguru", time.Hour, 30*24*time.Hour).WithClock(clock.Now)
	f.svc = NewRegistrationService(f.users, f.pending, f.codes, f.delivery, tokens, f.publisher, RegistrationConfig{
		CodeTTL:       600 * time.Second,
		LoginCodeTTL:  300 * time.Second,
		Grace:         time.Hour,
		AutoProvision: autoProvision,
	}, testLogger()).WithClock(clock.Now)
	return f
}

func validRegistration() RegistrationRequest {
	return RegistrationRequest{
		Email:           "a@x.com",
		Username:        "alice",
		FirstName:       "Alice",
		LastName:        "Rao",
		Role:            "student",
		Password:        "Secret123",
		PasswordConfirm: "Secret123",
	}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestRegistrationVerifyScenario(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()

	sent, err := f.svc.Initiate(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, 600, sent.ExpiresIn)

	code := f.delivery.lastCode("a@x.com")
	require.Len(t, code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, code)

	_, err = f.svc.Verify(ctx, "a@x.com", wrongCode(code))
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
	_, stillPending, _ := f.pending.Get(ctx, "a@x.com")
	assert.True(t, stillPending)

	result, err := f.svc.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.Equal(t, "alice", result.User.Username)
	assert.True(t, utils.CheckPassword(result.User.Password, "Secret123"))

	_, stillPending, _ = f.pending.Get(ctx, "a@x.com")
	assert.False(t, stillPending)

	_, err = f.svc.Verify(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.UserRegistered, published[0].Type)
}

func TestRegistrationVerifyExpired(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, validRegistration())
	require.NoError(t, err)
	code := f.delivery.lastCode("a@x.com")

	f.clock.Advance(601 * time.Second)

	_, err = f.svc.Verify(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, apperrors.ErrExpired)

	_, err = f.svc.Verify(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.users.users)
}

func TestRegistrationVerifySucceedsOnceUnderConcurrency(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, validRegistration())
	require.NoError(t, err)
	code := f.delivery.lastCode("a@x.com")

	var wg sync.WaitGroup
	var successes, notFound int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(ctx, "a@x.com", code)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, apperrors.ErrNotFound):
				atomic.AddInt32(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(15), notFound)
	assert.Len(t, f.users.users, 1)
}

func TestRegistrationInitiateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegistrationRequest)
		kind   error
	}{
		{"bad email", func(r *RegistrationRequest) { r.Email = "not-an-email" }, apperrors.ErrValidation},
		{"weak password", func(r *RegistrationRequest) { r.Password, r.PasswordConfirm = "secret12", "secret12" }, apperrors.ErrValidation},
		{"no digit", func(r *RegistrationRequest) { r.Password, r.PasswordConfirm = "SecretPass", "SecretPass" }, apperrors.ErrValidation},
		{"mismatch", func(r *RegistrationRequest) { r.PasswordConfirm = "Secret124" }, apperrors.ErrValidation},
		{"unknown role", func(r *RegistrationRequest) { r.Role = "principal" }, apperrors.ErrValidation},
		{"admin role", func(r *RegistrationRequest) { r.Role = "admin" }, apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture(false)
			req := validRegistration()
			tt.mutate(&req)

			_, err := f.svc.Initiate(context.Background(), req)
			assert.ErrorIs(t, err, tt.kind)
			assert.Zero(t, f.delivery.sends)
			assert.Zero(t, f.pending.Len())
		})
	}
}

func TestRegistrationInitiateConflicts(t *testing.T) {
	f := newRegistrationFixture(false)
	f.users.add(models.User{Email: "a@x.com", Username: "someone", Role: models.RoleStudent})

	_, err := f.svc.Initiate(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	req := validRegistration()
	req.Email = "b@x.com"
	req.Username = "someone"
	_, err = f.svc.Initiate(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRegistrationDeliveryFailureRollsBack(t *testing.T) {
	f := newRegistrationFixture(false)
	f.delivery.err = errors.New("smtp down")

	_, err := f.svc.Initiate(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperrors.ErrDelivery)
	assert.Zero(t, f.pending.Len())
}

func TestRegistrationInitiateOverwritesPending(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, validRegistration())
	require.NoError(t, err)
	req := validRegistration()
	req.FirstName = "Alicia"
	_, err = f.svc.Initiate(ctx, req)
	require.NoError(t, err)

	entry, ok, err := f.pending.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alicia", entry.FirstName)
	assert.Equal(t, f.delivery.lastCode("a@x.com"), entry.Code)
	assert.Equal(t, 1, f.pending.Len())
}

// interleavedStore runs beforeClaim once, between Verify's read of the entry
// and its claim.
type interleavedStore[T any] struct {
	*otpstore.MemoryStore[T]
	beforeClaim func()
}

func (s *interleavedStore[T]) Claim(ctx context.Context, key string, match func(T) bool) (bool, error) {
	if hook := s.beforeClaim; hook != nil {
		s.beforeClaim = nil
		hook()
	}
	return s.MemoryStore.Claim(ctx, key, match)
}

func TestRegistrationVerifyKeepsNewerPendingEntry(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()
	pending := &interleavedStore[PendingRegistration]{MemoryStore: f.pending}
	tokens := utils.NewTokenIssuer("test-secret", "gyanguru", time.Hour, 30*24*time.Hour).WithClock(f.clock.Now)
	svc := NewRegistrationService(f.users, pending, f.codes, f.delivery, tokens, f.publisher, RegistrationConfig{
		Grace: time.Hour,
	}, testLogger()).WithClock(f.clock.Now)

	_, err := svc.Initiate(ctx, validRegistration())
	require.NoError(t, err)
	oldCode := f.delivery.lastCode("a@x.com")

	newer := validRegistration()
	newer.FirstName = "Alicia"
	pending.beforeClaim = func() {
		for f.delivery.lastCode("a@x.com") == oldCode {
			_, err := svc.Initiate(ctx, newer)
			require.NoError(t, err)
		}
	}

	_, err = svc.Verify(ctx, "a@x.com", oldCode)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
	assert.Empty(t, f.users.users)

	result, err := svc.Verify(ctx, "a@x.com", f.delivery.lastCode("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "Alicia", result.User.FirstName)
}

func TestRegistrationVerifyRestoresEntryWhenCreateFails(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, validRegistration())
	require.NoError(t, err)
	code := f.delivery.lastCode("a@x.com")

	f.users.createErr = errors.New("connection reset")
	_, err = f.svc.Verify(ctx, "a@x.com", code)
	require.Error(t, err)

	f.users.createErr = nil
	result, err := f.svc.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", result.User.Email)
}

func TestVerifyOTPExistingUser(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()
	user := f.users.add(models.User{Email: "t@x.com", Username: "teach", Role: models.RoleTeacher, IsActive: true})

	sent, err := f.svc.SendOTP(ctx, "T@x.com", "email")
	require.NoError(t, err)
	assert.Equal(t, 300, sent.ExpiresIn)

	code := f.delivery.lastCode("t@x.com")
	result, err := f.svc.VerifyOTP(ctx, "t@x.com", code, "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotNil(t, f.users.users[user.ID].LastLogin)

	_, err = f.svc.VerifyOTP(ctx, "t@x.com", code, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVerifyOTPExpiresAfterFiveMinutes(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()
	f.users.add(models.User{Email: "t@x.com", Username: "teach", Role: models.RoleTeacher, IsActive: true})

	_, err := f.svc.SendOTP(ctx, "t@x.com", "email")
	require.NoError(t, err)
	f.clock.Advance(301 * time.Second)

	_, err = f.svc.VerifyOTP(ctx, "t@x.com", f.delivery.lastCode("t@x.com"), "")
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestVerifyOTPUnknownIdentifierWithoutProvisioning(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "new@x.com", "email")
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, "new@x.com", f.delivery.lastCode("new@x.com"), "student")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.users.users)
}

func TestVerifyOTPProvisionsRestrictedRoles(t *testing.T) {
	f := newRegistrationFixture(true)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+919876543210", "phone")
	require.NoError(t, err)

	result, err := f.svc.VerifyOTP(ctx, "+919876543210", f.delivery.lastCode("+919876543210"), "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.Equal(t, "user_543210", result.User.Username)
	require.NotNil(t, result.User.Phone)
	assert.Equal(t, "+919876543210", *result.User.Phone)

	_, err = f.svc.SendOTP(ctx, "mum@x.com", "email")
	require.NoError(t, err)
	result, err = f.svc.VerifyOTP(ctx, "mum@x.com", f.delivery.lastCode("mum@x.com"), "parent")
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, result.User.Role)
	assert.Equal(t, "mum", result.User.Username)
}

func TestVerifyOTPRejectsInactiveAccount(t *testing.T) {
	f := newRegistrationFixture(false)
	ctx := context.Background()
	f.users.add(models.User{Email: "t@x.com", Username: "teach", Role: models.RoleTeacher, IsActive: false})

	_, err := f.svc.SendOTP(ctx, "t@x.com", "email")
	require.NoError(t, err)
	_, err = f.svc.VerifyOTP(ctx, "t@x.com", f.delivery.lastCode("t@x.com"), "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSendOTPRejectsUnknownMethod(t *testing.T) {
	f := newRegistrationFixture(false)
	_, err := f.svc.SendOTP(context.Background(), "t@x.com", "pigeon")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}
