package services

import (
	"context"
	"errors"
	"time"

	"projecthub/backend/internal/config"
	"projecthub/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenIssuer = "projecthub-backend"

type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, string, int64, error)
	Logout(ctx context.Context, refreshToken string) error
}

type AuthServiceImpl struct {
	db  *gorm.DB
	cfg config.AuthConfig
}

func NewAuthService(db *gorm.DB, cfg config.AuthConfig) AuthService {
	return &AuthServiceImpl{db: db, cfg: cfg}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ? OR email = ?", username, username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, forbiddenf("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(user.Password, password) {
		return nil, forbiddenf("invalid credentials")
	}
	return &user, nil
}

func (s *AuthServiceImpl) GenerateToken(ctx context.Context, userID uuid.UUID) (string, string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iss":     tokenIssuer,
		"exp":     time.Now().Add(s.cfg.AccessTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", err
	}

	refreshUUID, err := uuid.NewV4()
	if err != nil {
		return "", "", err
	}

	token := models.Token{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		RefreshToken: refreshUUID,
		ExpiresAt:    time.Now().Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return "", "", err
	}

	return accessToken, refreshUUID.String(), nil
}

// RefreshToken rotates a refresh token: the old row is deleted after a
// replacement pair is issued.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (string, string, int64, error) {
	var token models.Token
	err := s.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, time.Now()).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", 0, forbiddenf("refresh token is invalid or expired")
	}
	if err != nil {
		return "", "", 0, err
	}

	accessToken, newRefreshToken, err := s.GenerateToken(ctx, token.UserID)
	if err != nil {
		return "", "", 0, err
	}

	if err := s.db.WithContext(ctx).Delete(&token).Error; err != nil {
		return "", "", 0, err
	}

	return accessToken, newRefreshToken, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	return s.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&models.Token{}).Error
}
