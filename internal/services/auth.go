package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	pkgerrors "github.com/yungbote/originality-backend/internal/pkg/errors"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/platform/ctxutil"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*types.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*types.User, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// JWTClaims carries the user in Subject and the session (user_token id) in ID.
type JWTClaims struct {
	jwt.RegisteredClaims
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &authService{
		db:            db,
		log:           baseLog.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  []byte(jwtSecretKey),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

var errInvalidCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("invalid email or password: %w", pkgerrors.ErrUnauthorized))

func (as *authService) Register(ctx context.Context, email, password, displayName string) (*types.User, error) {
	email = repos.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, apierr.BadRequest("invalid_email", "invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, apierr.BadRequest("weak_password", "password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *types.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := as.userRepo.EmailExists(dbc, email)
		if err != nil {
			return err
		}
		if exists {
			return apierr.New(http.StatusConflict, "email_taken", fmt.Errorf("email already registered: %w", pkgerrors.ErrConflict))
		}
		users, err := as.userRepo.Create(dbc, []*types.User{{
			Email:       email,
			Password:    string(hash),
			DisplayName: strings.TrimSpace(displayName),
		}})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		created = users[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("User registered", "user_id", created.ID)
	return created, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := as.userRepo.GetByEmail(dbctx.New(ctx), email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	sessionID := uuid.New()
	pair, err := as.issue(u.ID, sessionID)
	if err != nil {
		return nil, err
	}
	_, err = as.userTokenRepo.Create(dbctx.New(ctx), []*types.UserToken{{
		ID:           sessionID,
		UserID:       u.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    as.now().Add(as.refreshTTL),
	}})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	as.log.Info("User logged in", "user_id", u.ID, "session_id", sessionID)
	return pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.BadRequest("missing_refresh_token", "refresh_token is required")
	}
	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		session, err := as.userTokenRepo.GetByRefreshToken(dbc, refreshToken)
		if err != nil {
			return fmt.Errorf("lookup session: %w", err)
		}
		if session == nil || as.now().After(session.ExpiresAt) {
			return apierr.New(http.StatusUnauthorized, "invalid_refresh_token", fmt.Errorf("refresh token invalid or expired: %w", pkgerrors.ErrUnauthorized))
		}
		next, err := as.issue(session.UserID, session.ID)
		if err != nil {
			return err
		}
		if err := as.userTokenRepo.Rotate(dbc, session.ID, refreshToken, next.AccessToken, next.RefreshToken, as.now().Add(as.refreshTTL)); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.New(http.StatusUnauthorized, "invalid_refresh_token", fmt.Errorf("refresh token already used: %w", pkgerrors.ErrUnauthorized))
			}
			return fmt.Errorf("rotate session: %w", err)
		}
		pair = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.SessionID == uuid.Nil {
		return pkgerrors.ErrUnauthorized
	}
	if err := as.userTokenRepo.SoftDeleteByIDs(dbctx.New(ctx), []uuid.UUID{rd.SessionID}); err != nil {
		as.log.Warn("Error deleting session", "error", err, "session_id", rd.SessionID)
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (as *authService) Me(ctx context.Context) (*types.User, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	users, err := as.userRepo.GetByIDs(dbctx.New(ctx), []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user_not_found", "user")
	}
	return users[0], nil
}

// SetContextFromToken verifies the access token and its session, then attaches
// ctxutil.RequestData. A revoked or rotated session invalidates its tokens.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, pkgerrors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %v: %w", err, pkgerrors.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token: %w", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid subject: %w", pkgerrors.ErrUnauthorized)
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ctx, fmt.Errorf("invalid session: %w", pkgerrors.ErrUnauthorized)
	}
	session, err := as.userTokenRepo.GetByID(dbctx.New(ctx), sessionID)
	if err != nil {
		return ctx, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil || session.UserID != userID || session.AccessToken != tokenString {
		return ctx, fmt.Errorf("session revoked: %w", pkgerrors.ErrUnauthorized)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		SessionID:   sessionID,
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) issue(userID, sessionID uuid.UUID) (*TokenPair, error) {
	now := as.now()
	exp := now.Add(as.accessTTL)
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecretKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", ExpiresAt: exp}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
