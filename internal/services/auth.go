package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/blueprintx-backend/internal/data/repos"
	usertypes "github.com/yungbote/blueprintx-backend/internal/domain/user"
	"github.com/yungbote/blueprintx-backend/internal/platform/apierr"
	"github.com/yungbote/blueprintx-backend/internal/platform/ctxutil"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (*usertypes.User, error)
	LoginUser(ctx context.Context, email, password string) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueAccessToken(userID uuid.UUID) (string, error)
	GetAccessTTL() time.Duration
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

const (
	minPasswordLen = 8
	// bcrypt rejects longer passwords
	maxPasswordBytes = 72
)

var errInvalidCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("incorrect email or password"))

type authService struct {
	log          *logger.Logger
	users        repos.UserRepo
	validate     *validator.Validate
	jwtSecretKey string
	accessTTL    time.Duration
	bcryptCost   int
}

// NewAuthService issues and verifies HS256 access tokens whose subject is the
// user id. users may be nil for tools that only mint tokens; registration and
// login then fail.
func NewAuthService(log *logger.Logger, users repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) (AuthService, error) {
	if strings.TrimSpace(jwtSecretKey) == "" {
		return nil, errors.New("jwt secret key required")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		users:        users,
		validate:     validator.New(),
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		bcryptCost:   bcrypt.DefaultCost,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (as *authService) RegisterUser(ctx context.Context, email, password string) (*usertypes.User, error) {
	if as.users == nil {
		return nil, errors.New("user store not configured")
	}
	email = normalizeEmail(email)
	if err := as.validate.Var(email, "required,email,max=254"); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_email", fmt.Errorf("invalid email %q", email))
	}
	if err := as.validate.Var(password, fmt.Sprintf("min=%d", minPasswordLen)); err != nil || len(password) > maxPasswordBytes {
		return nil, apierr.New(http.StatusBadRequest, "invalid_password",
			fmt.Errorf("password must be %d to %d characters", minPasswordLen, maxPasswordBytes))
	}

	exists, err := as.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "registration_failed", err)
	}
	if exists {
		return nil, apierr.New(http.StatusConflict, "email_taken", errors.New("user with this email already exists"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), as.bcryptCost)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "registration_failed", fmt.Errorf("hash password: %w", err))
	}
	u, err := as.users.Create(ctx, nil, &usertypes.User{Email: email, Password: string(hash)})
	if err != nil {
		// lost a race with a concurrent signup for the same address
		if taken, _ := as.users.EmailExists(ctx, nil, email); taken {
			return nil, apierr.New(http.StatusConflict, "email_taken", errors.New("user with this email already exists"))
		}
		return nil, apierr.New(http.StatusInternalServerError, "registration_failed", err)
	}
	as.log.Info("User registered", "user_id", u.ID)
	return u, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, error) {
	if as.users == nil {
		return "", errors.New("user store not configured")
	}
	u, err := as.users.GetByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		return "", apierr.New(http.StatusInternalServerError, "login_failed", err)
	}
	if u == nil {
		return "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}
	tok, err := as.IssueAccessToken(u.ID)
	if err != nil {
		return "", apierr.New(http.StatusInternalServerError, "login_failed", err)
	}
	return tok, nil
}

func (as *authService) IssueAccessToken(userID uuid.UUID) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, errors.New("missing token")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	})
	return ctx, nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
