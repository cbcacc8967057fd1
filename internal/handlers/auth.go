package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"doctor-portal-server/internal/config"
	"doctor-portal-server/internal/models"
	"doctor-portal-server/internal/utils"
)

// ExternalProfile is the identity handed back by an external auth provider
// after a successful federation round-trip.
type ExternalProfile struct {
	ExternalID string
	Email      string
	Name       string
}

// ExternalAuthVerifier exchanges an OAuth callback code for a verified
// profile. The federation itself (redirects, token exchange, signature
// checks) lives behind this interface.
type ExternalAuthVerifier interface {
	AuthURL(state string) string
	Verify(code string) (*ExternalProfile, error)
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Verifier ExternalAuthVerifier
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, verifier ExternalAuthVerifier) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Verifier: verifier}
}

// SignupRequest represents the request body for user registration.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=Doctor Patient Admin"`
}

// AuthResponse is returned for successful signup and login.
type AuthResponse struct {
	Token        string               `json:"token"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Signup handles user registration. Patient accounts also get an empty
// Patient profile so the doctor-assignment flow has a document to claim.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "Email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Email: req.Email,
		Name:  req.Name,
		Role:  models.Role(req.Role),
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	if user.Role == models.RolePatient {
		patient := models.Patient{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
		}
		if err := h.DB.Create(&patient).Error; err != nil {
			utils.InternalServerError(c, "Failed to create patient profile: "+err.Error())
			return
		}
	}

	token, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Created(c, "User registered successfully", AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if user.Password == "" {
		utils.BadRequest(c, "Please use Google login for this account")
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	token, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, "Login successful", AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// GoogleLogin redirects the client into the external provider's consent flow.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.Verifier == nil {
		utils.InternalServerError(c, "Google login is not configured")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.Verifier.AuthURL(c.Query("state")))
}

// GoogleCallback completes the OAuth round-trip: the verified profile is
// matched (or created) as a local user, a Patient profile is ensured for
// patient accounts, and the client is redirected with fresh tokens.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.Verifier == nil {
		utils.InternalServerError(c, "Google login is not configured")
		return
	}

	profile, err := h.Verifier.Verify(c.Query("code"))
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, h.Cfg.Origin+"/login?error=auth_failed")
		return
	}

	var user models.User
	err = h.DB.Where("google_id = ?", profile.ExternalID).
		Or("email = ?", profile.Email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			Email:    profile.Email,
			Name:     profile.Name,
			Role:     models.RolePatient,
			GoogleID: profile.ExternalID,
		}
		if err := h.DB.Create(&user).Error; err != nil {
			utils.InternalServerError(c, "Failed to create user: "+err.Error())
			return
		}
	} else if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	} else if user.GoogleID == "" {
		user.GoogleID = profile.ExternalID
		h.DB.Save(&user)
	}

	if user.Role == models.RolePatient {
		var patient models.Patient
		if err := h.DB.First(&patient, "user_id = ?", user.ID).Error; err == gorm.ErrRecordNotFound {
			patient = models.Patient{UserID: user.ID, Name: user.Name, Email: user.Email}
			if err := h.DB.Create(&patient).Error; err != nil {
				utils.InternalServerError(c, "Failed to create patient profile: "+err.Error())
				return
			}
		}
	}

	token, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/success?token=%s&refreshToken=%s",
		h.Cfg.Origin, url.QueryEscape(token), url.QueryEscape(refreshToken))
	c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// RefreshRequest represents the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh exchanges a valid refresh token for a new token pair, revoking the
// old refresh token (rotation).
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	claims, err := utils.ValidateToken(req.RefreshToken, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?",
		req.RefreshToken, claims.UserID, false, time.Now()).First(&storedToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.InternalServerError(c, "Database error checking refresh token: "+err.Error())
		}
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.InternalServerError(c, "Failed to find user associated with token: "+err.Error())
		return
	}

	storedToken.IsRevoked = true
	h.DB.Save(&storedToken)

	token, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, "Access token refreshed successfully", AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND is_revoked = ?", req.RefreshToken, false).
		First(&storedToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Token not found or already revoked, which is acceptable for logout.
			utils.Success(c, "Logout successful", nil)
		} else {
			utils.InternalServerError(c, "Database error during logout: "+err.Error())
		}
		return
	}

	storedToken.IsRevoked = true
	storedToken.ExpiresAt = time.Now()
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// issueTokens generates a token pair and persists the refresh token.
func (h *AuthHandler) issueTokens(user *models.User) (string, string, error) {
	token, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, refreshTokenString, nil
}
