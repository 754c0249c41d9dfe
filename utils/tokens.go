package utils

import (
	"context"
	"time"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 365 * 24 * time.Hour
)

var (
	accessTokenSigner  *jwt.Signer
	refreshTokenSigner *jwt.Signer

	AccessTokenVerifier  *jwt.Verifier
	RefreshTokenVerifier *jwt.Verifier
)

type AccessToken struct {
	ID   string `json:"ID"`
	Role string `json:"role"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// InitializeTokens builds the HS256 signers and verifiers for both token kinds.
func InitializeTokens(accessSecret, refreshSecret string) {
	accessTokenSigner = jwt.NewSigner(jwt.HS256, []byte(accessSecret), accessTokenTTL)
	refreshTokenSigner = jwt.NewSigner(jwt.HS256, []byte(refreshSecret), refreshTokenTTL)

	AccessTokenVerifier = jwt.NewVerifier(jwt.HS256, []byte(accessSecret))
	AccessTokenVerifier.WithDefaultBlocklist()

	RefreshTokenVerifier = jwt.NewVerifier(jwt.HS256, []byte(refreshSecret))
	RefreshTokenVerifier.WithDefaultBlocklist()
	RefreshTokenVerifier.Extractors = append(RefreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput RefreshTokenInput
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})
}

func AccessTokenMiddleware() iris.Handler {
	return AccessTokenVerifier.Verify(func() interface{} {
		return new(AccessToken)
	})
}

func RefreshTokenMiddleware() iris.Handler {
	return RefreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
}

func CreateTokenPair(ctx context.Context, id, role string) (*TokenPair, error) {
	accessToken, err := accessTokenSigner.Sign(AccessToken{ID: id, Role: role})
	if err != nil {
		return nil, err
	}

	refreshToken, err := refreshTokenSigner.Sign(jwt.Claims{Subject: id, ID: uuid.NewString()})
	if err != nil {
		return nil, err
	}

	if storage.Redis != nil {
		if err := storage.Redis.Set(ctx, string(refreshToken), "true", refreshTokenTTL+5*time.Minute).Err(); err != nil {
			return nil, err
		}
	}

	return &TokenPair{AccessToken: string(accessToken), RefreshToken: string(refreshToken)}, nil
}

// ConsumeRefreshToken reports whether the refresh token is still live and
// revokes it. Without Redis the signature check alone decides.
func ConsumeRefreshToken(ctx context.Context, token string) bool {
	if storage.Redis == nil {
		return true
	}
	valid, err := storage.Redis.GetDel(ctx, token).Result()
	return err == nil && valid == "true"
}

// CurrentUser returns the verified access token claims.
func CurrentUser(ctx iris.Context) *AccessToken {
	claims, _ := jwt.Get(ctx).(*AccessToken)
	return claims
}

// OptionalAccessToken sets "userID" when a valid bearer token is present and
// lets anonymous requests through untouched.
func OptionalAccessToken(ctx iris.Context) {
	if token := AccessTokenVerifier.RequestToken(ctx); token != "" {
		if verified, err := AccessTokenVerifier.VerifyToken([]byte(token)); err == nil {
			var claims AccessToken
			if err := verified.Claims(&claims); err == nil && claims.ID != "" {
				ctx.Values().Set("userID", claims.ID)
			}
		}
	}
	ctx.Next()
}
