package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/services"
)

type Registrar interface {
	Initiate(ctx context.Context, req services.RegistrationRequest) (*services.CodeSent, error)
	Verify(ctx context.Context, email, code string) (*services.AuthResult, error)
	SendOTP(ctx context.Context, identifier, method string) (*services.CodeSent, error)
	VerifyOTP(ctx context.Context, identifier, code, role string) (*services.AuthResult, error)
}

type Authenticator interface {
	Login(ctx context.Context, login, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	GoogleLogin(ctx context.Context, rawToken string) (*services.AuthResult, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update repositories.ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	CreateUser(ctx context.Context, req services.CreateUserRequest) (*models.User, error)
}

type AuthController struct {
	registration Registrar
	auth         Authenticator
}

func NewAuthController(registration Registrar, auth Authenticator) *AuthController {
	return &AuthController{registration: registration, auth: auth}
}

type verifyRegistrationInput struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type sendOTPInput struct {
	Identifier string `json:"identifier" binding:"required"`
	Method     string `json:"method"`
}

type verifyOTPInput struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"code" binding:"required"`
	Role       string `json:"role"`
}

// loginInput accepts the login name under either key.
type loginInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type googleInput struct {
	Token string `json:"token" binding:"required"`
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type profileInput struct {
	FirstName      *string `json:"first_name" binding:"omitempty,max=80"`
	LastName       *string `json:"last_name" binding:"omitempty,max=80"`
	Phone          *string `json:"phone" binding:"omitempty,max=20"`
	ProfilePicture *string `json:"profile_picture" binding:"omitempty,max=255"`
}

type changePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// POST /api/auth/register-initiate
func (ac *AuthController) RegisterInitiate(c *gin.Context) {
	var req services.RegistrationRequest
	if !bindJSON(c, &req) {
		return
	}
	sent, err := ac.registration.Initiate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sent)
}

// POST /api/auth/register-verify
func (ac *AuthController) RegisterVerify(c *gin.Context) {
	var in verifyRegistrationInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := ac.registration.Verify(c.Request.Context(), in.Email, in.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (ac *AuthController) SendOTP(c *gin.Context) {
	var in sendOTPInput
	if !bindJSON(c, &in) {
		return
	}
	sent, err := ac.registration.SendOTP(c.Request.Context(), in.Identifier, in.Method)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sent)
}

func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var in verifyOTPInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := ac.registration.VerifyOTP(c.Request.Context(), in.Identifier, in.Code, in.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ac *AuthController) Login(c *gin.Context) {
	var in loginInput
	if !bindJSON(c, &in) {
		return
	}
	login := in.Email
	if login == "" {
		login = in.Username
	}
	result, err := ac.auth.Login(c.Request.Context(), login, in.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ac *AuthController) GoogleLogin(c *gin.Context) {
	var in googleInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := ac.auth.GoogleLogin(c.Request.Context(), in.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ac *AuthController) Refresh(c *gin.Context) {
	var in refreshInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := ac.auth.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logout is stateless; the client drops its tokens.
func (ac *AuthController) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ac *AuthController) GetProfile(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	user, err := ac.auth.Profile(c.Request.Context(), me.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) UpdateProfile(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	var in profileInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := ac.auth.UpdateProfile(c.Request.Context(), me.ID, repositories.ProfileUpdate{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Phone:          in.Phone,
		ProfilePicture: in.ProfilePicture,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	var in changePasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := ac.auth.ChangePassword(c.Request.Context(), me.ID, in.OldPassword, in.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// POST /api/auth/register (admin only). Creates the account directly,
// without a verification code.
func (ac *AuthController) Register(c *gin.Context) {
	var req services.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := ac.auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}
