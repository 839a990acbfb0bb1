package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/otpstore"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/utils"
)

const codeDigits = 6

// PendingRegistration is the sign-up payload held until the email is verified.
// The password is kept only as a bcrypt hash.
type PendingRegistration struct {
	Code         string                      `json:"code"`
	ExpiresAt    time.Time                   `json:"expires_at"`
	Email        string                      `json:"email"`
	Username     string                      `json:"username"`
	PasswordHash string                      `json:"password_hash"`
	FirstName    string                      `json:"first_name"`
	LastName     string                      `json:"last_name"`
	Role         models.UserRole             `json:"role"`
	Phone        string                      `json:"phone,omitempty"`
	Profile      repositories.ProfileDetails `json:"profile"`
}

// OneTimeCode is a login code for an email address or phone number.
type OneTimeCode struct {
	Code      string         `json:"code"`
	ExpiresAt time.Time      `json:"expires_at"`
	Method    DeliveryMethod `json:"method"`
}

type TokenIssuer interface {
	IssuePair(userID, role string) (utils.TokenPair, error)
}

type RegistrationRequest struct {
	Email           string `json:"email" binding:"required,email,max=150"`
	Username        string `json:"username" binding:"required,min=3,max=80"`
	FirstName       string `json:"first_name" binding:"required,max=80"`
	LastName        string `json:"last_name" binding:"required,max=80"`
	Role            string `json:"role" binding:"required,user_role"`
	Password        string `json:"password" binding:"required,strongpassword"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	Phone           string `json:"phone" binding:"omitempty,max=20"`
	repositories.ProfileDetails
}

type CodeSent struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

type AuthResult struct {
	utils.TokenPair
	User *models.User `json:"user"`
}

type RegistrationConfig struct {
	CodeTTL      time.Duration
	LoginCodeTTL time.Duration
	// Grace keeps expired entries readable so verify can tell expired from unknown.
	Grace         time.Duration
	AutoProvision bool
}

// RegistrationService runs the email-verified sign-up flow and the
// one-time-code login flow.
type RegistrationService struct {
	users     repositories.UserRepository
	pending   otpstore.Store[PendingRegistration]
	codes     otpstore.Store[OneTimeCode]
	delivery  Delivery
	tokens    TokenIssuer
	publisher events.Publisher
	validate  *validator.Validate
	cfg       RegistrationConfig
	now       func() time.Time
	logger    *slog.Logger
}

func NewRegistrationService(
	users repositories.UserRepository,
	pending otpstore.Store[PendingRegistration],
	codes otpstore.Store[OneTimeCode],
	delivery Delivery,
	tokens TokenIssuer,
	publisher events.Publisher,
	cfg RegistrationConfig,
	logger *slog.Logger,
) *RegistrationService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 600 * time.Second
	}
	if cfg.LoginCodeTTL <= 0 {
		cfg.LoginCodeTTL = 300 * time.Second
	}
	return &RegistrationService{
		users:     users,
		pending:   pending,
		codes:     codes,
		delivery:  delivery,
		tokens:    tokens,
		publisher: publisher,
		validate:  utils.NewValidator(),
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// Initiate validates the sign-up payload, stores it under the email and sends
// a verification code. A second call for the same email replaces the first.
func (s *RegistrationService) Initiate(ctx context.Context, req RegistrationRequest) (*CodeSent, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	if req.Password != req.PasswordConfirm {
		return nil, apperrors.Validation("password_confirm", utils.ErrPasswordMismatch.Error())
	}
	role, _ := models.ParseRole(req.Role)
	if role == models.RoleAdmin {
		return nil, apperrors.Validation("role", "admin accounts are created by an administrator")
	}

	if taken, err := s.users.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.Conflict("email already registered")
	}
	if taken, err := s.users.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.Conflict("username already taken")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	entry := PendingRegistration{
		Code:         code,
		ExpiresAt:    s.now().Add(s.cfg.CodeTTL),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		Phone:        strings.TrimSpace(req.Phone),
		Profile:      req.ProfileDetails,
	}
	if err := s.pending.Put(ctx, req.Email, entry, s.cfg.CodeTTL+s.cfg.Grace); err != nil {
		return nil, fmt.Errorf("store pending registration: %w", err)
	}

	if err := s.delivery.Send(ctx, req.Email, code, DeliveryEmail); err != nil {
		if _, delErr := s.pending.Delete(ctx, req.Email); delErr != nil {
			s.logger.Error("Failed to roll back pending registration", "email", req.Email, "error", delErr)
		}
		s.logger.Warn("Verification code delivery failed", "email", req.Email, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrDelivery, "failed to send verification code", err)
	}

	s.logger.Info("Registration initiated", "email", req.Email, "role", role)
	return &CodeSent{
		Message:   fmt.Sprintf("Verification code sent to %s", req.Email),
		ExpiresIn: int(s.cfg.CodeTTL.Seconds()),
	}, nil
}

// Verify consumes the pending registration if the code matches and creates
// the account. At most one call succeeds per pending entry.
func (s *RegistrationService) Verify(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return nil, apperrors.Validation("", "email and code are required")
	}

	entry, ok, err := s.pending.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	if !ok {
		return nil, apperrors.NotFound("no pending registration found, please register again")
	}
	now := s.now()
	if now.After(entry.ExpiresAt) {
		if _, err := s.pending.Delete(ctx, email); err != nil {
			return nil, fmt.Errorf("drop expired registration: %w", err)
		}
		return nil, apperrors.New(apperrors.ErrExpired, "verification code expired, please register again")
	}
	if !codesEqual(entry.Code, code) {
		return nil, apperrors.New(apperrors.ErrInvalidCode, "invalid verification code")
	}

	claimed, err := s.pending.Claim(ctx, email, func(current PendingRegistration) bool {
		return codesEqual(current.Code, code)
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending registration: %w", err)
	}
	if !claimed {
		return nil, lostClaim(ctx, s.pending, email,
			"no pending registration found, please register again",
			"a newer verification code was sent, please use it")
	}

	user := &models.User{
		Email:     entry.Email,
		Username:  entry.Username,
		Password:  entry.PasswordHash,
		FirstName: entry.FirstName,
		LastName:  entry.LastName,
		Role:      entry.Role,
		IsActive:  true,
	}
	if entry.Phone != "" {
		phone := entry.Phone
		user.Phone = &phone
	}
	if err := s.users.CreateWithProfile(ctx, user, entry.Profile); err != nil {
		// The account was not created, so the code stays usable until it expires.
		if !errors.Is(err, apperrors.ErrConflict) {
			if putErr := s.pending.Put(ctx, email, entry, entry.ExpiresAt.Sub(now)+s.cfg.Grace); putErr != nil {
				s.logger.Error("Failed to restore pending registration", "email", email, "error", putErr)
			}
		}
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Registration verified", "user_id", user.ID, "role", user.Role)
	publish(ctx, s.publisher, s.logger, events.NewEvent(events.UserRegistered, user.ID, map[string]interface{}{
		"role":  user.Role,
		"email": user.Email,
	}))
	return result, nil
}

// SendOTP issues a login code for an email address or phone number.
func (s *RegistrationService) SendOTP(ctx context.Context, identifier, rawMethod string) (*CodeSent, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" {
		return nil, apperrors.Validation("identifier", "is required")
	}
	method, err := ParseDeliveryMethod(rawMethod)
	if err != nil {
		return nil, err
	}
	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	entry := OneTimeCode{Code: code, ExpiresAt: s.now().Add(s.cfg.LoginCodeTTL), Method: method}
	if err := s.codes.Put(ctx, identifier, entry, s.cfg.LoginCodeTTL+s.cfg.Grace); err != nil {
		return nil, fmt.Errorf("store login code: %w", err)
	}
	if err := s.delivery.Send(ctx, identifier, code, method); err != nil {
		if _, delErr := s.codes.Delete(ctx, identifier); delErr != nil {
			s.logger.Error("Failed to roll back login code", "identifier", identifier, "error", delErr)
		}
		return nil, apperrors.Wrap(apperrors.ErrDelivery, "failed to send login code", err)
	}

	return &CodeSent{
		Message:   fmt.Sprintf("Login code sent to %s", identifier),
		ExpiresIn: int(s.cfg.LoginCodeTTL.Seconds()),
	}, nil
}

// VerifyOTP consumes a login code and signs the matching account in. Unknown
// identifiers get an account only when auto provisioning is enabled.
func (s *RegistrationService) VerifyOTP(ctx context.Context, identifier, code, rawRole string) (*AuthResult, error) {
	identifier = normalizeIdentifier(identifier)
	if identifier == "" || code == "" {
		return nil, apperrors.Validation("", "identifier and code are required")
	}

	entry, ok, err := s.codes.Get(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("load login code: %w", err)
	}
	if !ok {
		return nil, apperrors.NotFound("no login code was requested for this identifier")
	}
	if s.now().After(entry.ExpiresAt) {
		if _, err := s.codes.Delete(ctx, identifier); err != nil {
			return nil, fmt.Errorf("drop expired login code: %w", err)
		}
		return nil, apperrors.New(apperrors.ErrExpired, "login code expired")
	}
	if !codesEqual(entry.Code, code) {
		return nil, apperrors.New(apperrors.ErrInvalidCode, "invalid login code")
	}
	claimed, err := s.codes.Claim(ctx, identifier, func(current OneTimeCode) bool {
		return codesEqual(current.Code, code)
	})
	if err != nil {
		return nil, fmt.Errorf("claim login code: %w", err)
	}
	if !claimed {
		return nil, lostClaim(ctx, s.codes, identifier,
			"no login code was requested for this identifier",
			"a newer login code was sent, please use it")
	}

	user, err := s.lookupIdentifier(ctx, identifier, entry.Method)
	if errors.Is(err, apperrors.ErrNotFound) {
		if !s.cfg.AutoProvision {
			return nil, apperrors.NotFound("no account is registered for this identifier")
		}
		user, err = s.provision(ctx, identifier, entry.Method, rawRole)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}
	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("Failed to stamp last login", "user_id", user.ID, "error", err)
	}
	return s.issue(user)
}

func (s *RegistrationService) lookupIdentifier(ctx context.Context, identifier string, method DeliveryMethod) (*models.User, error) {
	if method == DeliverySMS {
		return s.users.GetByPhone(ctx, identifier)
	}
	return s.users.GetByEmail(ctx, identifier)
}

// provision creates a minimal account. Only student and parent accounts can be
// created this way.
func (s *RegistrationService) provision(ctx context.Context, identifier string, method DeliveryMethod, rawRole string) (*models.User, error) {
	role, ok := models.ParseRole(rawRole)
	if !ok || (role != models.RoleStudent && role != models.RoleParent) {
		role = models.RoleStudent
	}

	user := &models.User{Role: role, IsActive: true, FirstName: "New", LastName: roleLabel(role)}
	if method == DeliverySMS {
		phone := identifier
		suffix := identifier
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		user.Phone = &phone
		user.Username = "user_" + suffix
		user.Email = user.Username + "@phone.gyanguru.local"
	} else {
		user.Email = identifier
		user.Username = strings.SplitN(identifier, "@", 2)[0]
	}
	if taken, err := s.users.ExistsByUsername(ctx, user.Username); err != nil {
		return nil, err
	} else if taken {
		user.Username += "_" + uuid.NewString()[:6]
	}

	if err := s.users.CreateWithProfile(ctx, user, repositories.ProfileDetails{}); err != nil {
		return nil, err
	}
	s.logger.Info("Provisioned account from login code", "user_id", user.ID, "role", role, "method", method)
	publish(ctx, s.publisher, s.logger, events.NewEvent(events.UserRegistered, user.ID, map[string]interface{}{
		"role":        user.Role,
		"provisioned": true,
	}))
	return user, nil
}

func (s *RegistrationService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{TokenPair: pair, User: user}, nil
}

// generateCode returns a uniformly random zero-padded six digit code.
// lostClaim explains a failed claim: either the entry is gone, or a newer
// code replaced it after it was read.
func lostClaim[T any](ctx context.Context, store otpstore.Store[T], key, gone, replaced string) error {
	_, ok, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("reload one-time entry: %w", err)
	}
	if ok {
		return apperrors.New(apperrors.ErrInvalidCode, replaced)
	}
	return apperrors.NotFound(gone)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func codesEqual(expected, given string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(given))) == 1
}

func roleLabel(role models.UserRole) string {
	r := string(role)
	if r == "" {
		return r
	}
	return strings.ToUpper(r[:1]) + r[1:]
}

func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}

func publish(ctx context.Context, publisher events.Publisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Event not published", "event_type", event.Type, "error", err)
	}
}
