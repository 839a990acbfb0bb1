package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type AuthTokens interface {
	TokenIssuer
	GenerateToken(userID, role string) (string, error)
	VerifyRefreshToken(token string) (*utils.Claims, error)
}

// GoogleIdentity is what a verified Google ID token tells us about the user.
type GoogleIdentity struct {
	Email     string
	FirstName string
	LastName  string
	Picture   string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, rawToken string) (*GoogleIdentity, error)
}

// IDTokenVerifier validates Google ID tokens against the OAuth client ID.
type IDTokenVerifier struct {
	audience string
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{audience: clientID}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, rawToken string) (*GoogleIdentity, error) {
	if v.audience == "" {
		return nil, errors.New("google login is not configured")
	}
	payload, err := idtoken.Validate(ctx, rawToken, v.audience)
	if err != nil {
		return nil, err
	}
	identity := &GoogleIdentity{}
	identity.Email, _ = payload.Claims["email"].(string)
	identity.FirstName, _ = payload.Claims["given_name"].(string)
	identity.LastName, _ = payload.Claims["family_name"].(string)
	identity.Picture, _ = payload.Claims["picture"].(string)
	if identity.FirstName == "" {
		identity.FirstName, _ = payload.Claims["name"].(string)
	}
	return identity, nil
}

type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email,max=150"`
	Username  string `json:"username" binding:"required,min=3,max=80"`
	FirstName string `json:"first_name" binding:"required,max=80"`
	LastName  string `json:"last_name" binding:"required,max=80"`
	Role      string `json:"role" binding:"required,user_role"`
	Password  string `json:"password" binding:"required,strongpassword"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	repositories.ProfileDetails
}

type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AuthService struct {
	users    repositories.UserRepository
	tokens   AuthTokens
	google   GoogleVerifier
	mailer   *utils.Mailer
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

func NewAuthService(users repositories.UserRepository, tokens AuthTokens, google GoogleVerifier, mailer *utils.Mailer, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		google:   google,
		mailer:   mailer,
		validate: utils.NewValidator(),
		now:      time.Now,
		logger:   logger,
	}
}

// Login accepts an email address or a username.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperrors.Validation("", "email and password are required")
	}

	user, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to stamp last login", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now
	return s.issue(user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "invalid refresh token", err)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	access, err := s.tokens.GenerateToken(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &RefreshResult{AccessToken: access, TokenType: "Bearer"}, nil
}

// GoogleLogin signs in the account with the token's email, creating a
// student account on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, rawToken string) (*AuthResult, error) {
	identity, err := s.google.Verify(ctx, rawToken)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "invalid google token", err)
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, apperrors.Unauthorized("google token carries no email")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		user = &models.User{
			Email:          email,
			Username:       strings.SplitN(email, "@", 2)[0],
			FirstName:      identity.FirstName,
			LastName:       identity.LastName,
			ProfilePicture: identity.Picture,
			Role:           models.RoleStudent,
			IsActive:       true,
		}
		if taken, existsErr := s.users.ExistsByUsername(ctx, user.Username); existsErr != nil {
			return nil, existsErr
		} else if taken {
			user.Username += "_" + uuid.NewString()[:6]
		}
		if err = s.users.CreateWithProfile(ctx, user, repositories.ProfileDetails{}); err == nil {
			s.logger.Info("Created account from google login", "user_id", user.ID)
		}
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}
	return s.issue(user)
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, update repositories.ProfileUpdate) (*models.User, error) {
	if update.Phone != nil && len(*update.Phone) > 20 {
		return nil, apperrors.Validation("phone", "must be at most 20")
	}
	return s.users.UpdateProfile(ctx, userID, update)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.Password, oldPassword) {
		return apperrors.Unauthorized("current password is incorrect")
	}
	if err := utils.CheckPasswordStrength(newPassword); err != nil {
		return apperrors.Validation("new_password", err.Error())
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// CreateUser is the administrator path: no verification code, any role.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	role, _ := models.ParseRole(req.Role)

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
	user := &models.User{
		Email:     req.Email,
		Username:  strings.TrimSpace(req.Username),
		Password:  hash,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		IsActive:  true,
	}
	if req.Phone != "" {
		phone := req.Phone
		user.Phone = &phone
	}
	if err := s.users.CreateWithProfile(ctx, user, req.ProfileDetails); err != nil {
		return nil, err
	}
	s.logger.Info("Administrator created account", "user_id", user.ID, "role", role)

	if s.mailer.Configured() {
		go func(to, name string, role models.UserRole) {
			body := fmt.Sprintf(`<h3>Hello %s,</h3><p>An administrator created your GyanGuru %s account.</p><p>Sign in with this email address and change your password after the first login.</p>`, name, role)
			if err := s.mailer.SendEmail(to, "Your GyanGuru account", body); err != nil {
				s.logger.Warn("Welcome email failed", "email", to, "error", err)
			}
		}(user.Email, user.FullName(), role)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{TokenPair: pair, User: user}, nil
}
