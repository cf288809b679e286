package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	"teamflow/internal/logging"
	"teamflow/internal/repository"
	"teamflow/internal/usecase"
	"teamflow/internal/validator"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// 会員登録の入力
type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

type AuthService struct {
	users    repository.UserRepository
	tx       repository.TransactionManager
	tokens   *TokenService
	hasher   PasswordHasher
	verifier PasswordVerifier
	events   event.Publisher
	clock    Clock
}

// DI
func NewAuthService(
	users repository.UserRepository,
	tx repository.TransactionManager,
	tokens *TokenService,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	events event.Publisher,
	clock Clock,
) *AuthService {
	if events == nil {
		events = event.Nop{}
	}
	return &AuthService{
		users:    users,
		tx:       tx,
		tokens:   tokens,
		hasher:   hasher,
		verifier: verifier,
		events:   events,
		clock:    clock,
	}
}

// Login はemailかusernameで有効ユーザーを探し、パスワードを照合する。
// どちらが違っていたかは返さない
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if err := validator.ValidateLogin(email, username, in.Password); err != nil {
		return nil, usecase.InvalidInput(err)
	}

	// 片方だけ来た時はそれをemail/usernameの両方として探す
	if username == "" {
		username = email
	}
	if email == "" {
		email = username
	}

	user, err := s.users.FindActiveByLogin(ctx, email, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verifier.Verify(in.Password, dummyPasswordHash())
			return nil, usecase.ErrUnauthorized
		}
		return nil, err
	}

	if !s.verifier.Verify(in.Password, user.PasswordHash) {
		return nil, usecase.ErrUnauthorized
	}

	res, err := s.tokens.IssueAuthResponse(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.UserLoggedIn, user.ID, event.UserLoggedInPayload{UserID: user.ID})
	return res, nil
}

// Register は重複確認→ハッシュ化→保存→トークン発行
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if err := validator.ValidateRegister(validator.Register{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		Username:        in.Username,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	}); err != nil {
		return nil, usecase.InvalidInput(err)
	}

	// 挿入前に両方確認して中途半端な状態を作らない
	if err := usecase.EnsureUniqueLogin(ctx, s.users, in.Email, in.Username, 0); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hashed,
		Role:         model.DefaultRole,
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// 同時登録で事前確認をすり抜けた場合
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, usecase.ConflictError("email or username already exists")
		}
		return nil, err
	}

	res, err := s.tokens.IssueAuthResponse(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.UserRegistered, user.ID, event.UserRegisteredPayload{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role.String(),
	})
	return res, nil
}

// Refresh は提示されたトークンを失効させ、新しいペアを発行する（ローテーション）。
// 同じトークンでの同時リフレッシュは条件付きUPDATEで1回だけ成功する
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if err := validator.ValidateRefreshToken(refreshToken); err != nil {
		return nil, usecase.InvalidInput(err)
	}

	var out *AuthResponse
	err := s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		ts := s.tokens.withRepos(r.Users(), r.RefreshTokens())

		rt, err := ts.loadActive(ctx, refreshToken)
		if err != nil {
			return err
		}

		user, err := r.Users().FindByID(ctx, rt.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return usecase.ErrUnauthorized
			}
			return err
		}
		if !user.IsActive {
			return usecase.ErrUnauthorized
		}

		newID := s.tokens.idGen.NewID()
		if err := r.RefreshTokens().RevokeActive(ctx, rt.ID, repository.RevokeInfo{
			At:           s.clock.Now(),
			Reason:       model.RevokeReasonRotated,
			ReplacedByID: &newID,
		}); err != nil {
			// 他のリクエストが先にローテーションした
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return usecase.ErrUnauthorized
			}
			return err
		}

		out, err = ts.issueAuthResponse(ctx, user, newID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Logout は常に成功する（失効済み・存在しないトークンでも）
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.RevokeRefreshToken(ctx, refreshToken, model.RevokeReasonLogout); err != nil {
		logging.FromContext(ctx).Warn("logout: revoke failed", "error", err)
	}
	return nil
}

// イベント送信の失敗はリクエストを失敗させない
func (s *AuthService) publish(ctx context.Context, t event.Type, userID int64, payload any) {
	if err := s.events.Publish(ctx, t, strconv.FormatInt(userID, 10), payload); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", string(t), "error", err)
	}
}
