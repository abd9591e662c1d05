package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/tiketa/tiketa-backend/internal/models"
	"github.com/tiketa/tiketa-backend/internal/platform"
)

// IdentityVerifier is the slice of the platform used for sign-in.
type IdentityVerifier interface {
	Me(ctx context.Context, accessToken string) (*platform.Identity, error)
}

// AuthService delegates identity verification to the platform and upserts the
// local user record keyed by the platform uid. It never issues or inspects
// platform credentials itself.
type AuthService struct {
	db        *gorm.DB
	verifier  IdentityVerifier
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(db *gorm.DB, verifier IdentityVerifier, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		db:        db,
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// SignIn verifies the platform access token, creates or refreshes the user
// and returns a session token for subsequent requests.
func (s *AuthService) SignIn(ctx context.Context, accessToken string) (*models.User, string, error) {
	if accessToken == "" {
		return nil, "", ErrUnauthenticated
	}

	identity, err := s.verifier.Me(ctx, accessToken)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			return nil, "", ErrUnauthenticated
		}
		return nil, "", fmt.Errorf("%w: %v", ErrPlatformUnavailable, err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("uid = ?", identity.UID).First(&user).Error
	switch {
	case err == nil:
		user.Username = identity.Username
		user.AccessToken = accessToken
		user.Roles = identity.Roles
		if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, "", err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Username:    identity.Username,
			UID:         identity.UID,
			AccessToken: accessToken,
			Roles:       identity.Roles,
		}
		if len(user.Roles) == 0 {
			user.Roles = []string{"user"}
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, "", err
		}
	default:
		return nil, "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"uid":      user.UID,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, "", err
	}

	return &user, signed, nil
}
