package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"teamflow/internal/config"
	"teamflow/internal/domain/model"
	"teamflow/internal/repository"
	"teamflow/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// リフレッシュトークンの乱数バイト数
const refreshTokenBytes = 64

var errNoSecret = errors.New("jwt secret is empty")

type (
	Clock       = usecase.Clock
	SystemClock = usecase.SystemClock
)

// リフレッシュトークンの行IDを作る約束
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// アクセストークンのclaims
type AccessClaims struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	jwt.RegisteredClaims
}

// 検証済みトークンから取り出した本人情報。
// Roleはclaimの生の値（解釈はmiddleware側）
type Identity struct {
	UserID int64
	Role   string
}

// ログイン/登録/リフレッシュの返却
type AuthResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	User         usecase.UserDTO `json:"user"`
}

type TokenService struct {
	cfg    config.JWTConfig
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	idGen  IDGenerator
	clock  Clock
}

// DI
// 署名キーが空なら起動時に失敗させる
func NewTokenService(
	cfg config.JWTConfig,
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	idGen IDGenerator,
	clock Clock,
) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	return &TokenService{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		idGen:  idGen,
		clock:  clock,
	}, nil
}

// Tx内のrepoに差し替えたコピー
func (s *TokenService) withRepos(users repository.UserRepository, tokens repository.RefreshTokenRepository) *TokenService {
	cp := *s
	cp.users = users
	cp.tokens = tokens
	return &cp
}

// IssueAccessToken はHS256で署名したアクセストークンと有効期限を返す
func (s *TokenService) IssueAccessToken(user *model.User) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.cfg.AccessTTL)

	claims := AccessClaims{
		Email:      user.Email,
		Username:   user.Username,
		Role:       user.Role.String(),
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        s.idGen.NewID(),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// GenerateRefreshToken は64バイトの乱数をbase64にした不透明な文字列を返す
func GenerateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DBには平文ではなくsha256を保存する
func HashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IssueAuthResponse は両トークンを発行し、リフレッシュトークン保存と最終ログイン更新をしてから返す
func (s *TokenService) IssueAuthResponse(ctx context.Context, user *model.User) (*AuthResponse, error) {
	return s.issueAuthResponse(ctx, user, s.idGen.NewID())
}

func (s *TokenService) issueAuthResponse(ctx context.Context, user *model.User, refreshID string) (*AuthResponse, error) {
	access, exp, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	plain, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.clock.Now()
	rt := &model.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: HashRefreshToken(plain),
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &now

	return &AuthResponse{
		Token:        access,
		RefreshToken: plain,
		ExpiresAt:    exp,
		User:         usecase.ToUserDTO(user),
	}, nil
}

// 有効（存在・未失効・期限内）なトークンを取得。
// 有効でなければErrUnauthorized
func (s *TokenService) loadActive(ctx context.Context, plain string) (*model.RefreshToken, error) {
	if plain == "" {
		return nil, usecase.ErrUnauthorized
	}

	rt, err := s.tokens.FindByTokenHash(ctx, HashRefreshToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, usecase.ErrUnauthorized
		}
		return nil, err
	}
	// 誤差は許容しない
	if !rt.IsActiveAt(s.clock.Now()) {
		return nil, usecase.ErrUnauthorized
	}
	return rt, nil
}

// ValidateRefreshToken は保存済み・未失効・期限内のときだけtrue。
// errはストレージの失敗のみ
func (s *TokenService) ValidateRefreshToken(ctx context.Context, plain string) (bool, error) {
	_, err := s.loadActive(ctx, plain)
	if errors.Is(err, usecase.ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeRefreshToken は冪等。該当がなくてもエラーにしない
func (s *TokenService) RevokeRefreshToken(ctx context.Context, plain, reason string) error {
	if plain == "" {
		return nil
	}
	return s.tokens.RevokeByTokenHash(ctx, HashRefreshToken(plain), repository.RevokeInfo{
		At:     s.clock.Now(),
		Reason: reason,
	})
}

// VerifyAccessToken は署名・issuer・audience・期限（誤差0）を検証する。
// 失敗理由は返さない
func (s *TokenService) VerifyAccessToken(token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}

	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, false
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, false
	}
	return Identity{UserID: id, Role: claims.Role}, true
}

// ResolveUserIDFromAccessToken は検証できればユーザーIDを返す
func (s *TokenService) ResolveUserIDFromAccessToken(token string) (int64, bool) {
	ident, ok := s.VerifyAccessToken(token)
	if !ok {
		return 0, false
	}
	return ident.UserID, true
}
