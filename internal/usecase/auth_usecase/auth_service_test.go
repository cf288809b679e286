package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"teamflow/internal/domain/event"
	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
	"teamflow/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc    *AuthService
	users  *UserRepoMock
	tokens *RefreshTokenRepoMock
	tx     *TxManagerMock
	events *PublisherMock
	clock  *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:  &UserRepoMock{},
		tokens: &RefreshTokenRepoMock{},
		events: &PublisherMock{},
		clock:  newFakeClock(),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{users: f.users, tokens: f.tokens}}

	ts := newTestTokenService(t, f.users, f.tokens, f.clock)
	f.svc = NewAuthService(f.users, f.tx, ts, plainHasher{}, plainHasher{}, f.events, f.clock)
	return f
}

func (f *authFixture) expectIssue(ctx context.Context, userID int64) {
	f.tokens.On("Create", ctx, mock.AnythingOfType("*model.RefreshToken")).Return(nil).Once()
	f.users.On("UpdateLastLogin", ctx, userID, f.clock.Now()).Return(nil).Once()
}

// =====================
// Login
// =====================

func TestLogin_Success_RoleClaimMatchesStoredRole(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := &model.User{ID: 3, Email: "bob@x.com", Username: "bob", PasswordHash: "hashed:pw1234", Role: model.RoleTeamLead, IsActive: true}
	f.users.On("FindActiveByLogin", ctx, "bob", "bob").Return(user, nil).Once()
	f.expectIssue(ctx, 3)
	f.events.On("Publish", ctx, event.UserLoggedIn, "3", event.UserLoggedInPayload{UserID: 3}).Return(nil).Once()

	res, err := f.svc.Login(ctx, LoginInput{Username: "bob", Password: "pw1234"})
	require.NoError(t, err)

	ident, ok := f.svc.tokens.VerifyAccessToken(res.Token)
	require.True(t, ok)
	assert.Equal(t, user.Role.String(), ident.Role)
	assert.Equal(t, int64(3), ident.UserID)

	f.users.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestLogin_UnknownUserAndWrongPasswordLookTheSame(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("FindActiveByLogin", ctx, "ghost@x.com", "ghost@x.com").Return(nil, repo.ErrUserNotFound).Once()
	f.users.On("FindActiveByLogin", ctx, "bob@x.com", "bob@x.com").
		Return(&model.User{ID: 3, PasswordHash: "hashed:right", IsActive: true}, nil).Once()

	_, errUnknown := f.svc.Login(ctx, LoginInput{Email: "ghost@x.com", Password: "pw"})
	_, errWrong := f.svc.Login(ctx, LoginInput{Email: "bob@x.com", Password: "wrong"})

	assert.ErrorIs(t, errUnknown, usecase.ErrUnauthorized)
	assert.ErrorIs(t, errWrong, usecase.ErrUnauthorized)
	assert.Equal(t, errUnknown, errWrong)

	f.tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_MissingFieldsIsValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Password: "pw"})
	assert.ErrorIs(t, err, usecase.ErrValidation)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "a@x.com"})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestLogin_PublishFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := &model.User{ID: 3, Email: "bob@x.com", Username: "bob", PasswordHash: "hashed:pw1234", Role: model.RoleTeamLead, IsActive: true}
	f.users.On("FindActiveByLogin", ctx, "bob@x.com", "bob").Return(user, nil).Once()
	f.expectIssue(ctx, 3)
	f.events.On("Publish", ctx, event.UserLoggedIn, "3", mock.Anything).Return(errors.New("broker down")).Once()

	_, err := f.svc.Login(ctx, LoginInput{Email: "bob@x.com", Username: "bob", Password: "pw1234"})
	assert.NoError(t, err)
}

// =====================
// Register
// =====================

func registerInput() RegisterInput {
	return RegisterInput{
		FirstName:       "Alice",
		LastName:        "Liddell",
		Email:           "alice@x.com",
		Username:        "alice",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
}

func TestRegister_DuplicateEmail_NoInsert(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("EmailExists", ctx, "alice@x.com", int64(0)).Return(true, nil).Once()

	_, err := f.svc.Register(ctx, registerInput())
	assert.ErrorIs(t, err, usecase.ErrConflict)

	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_DuplicateUsername_NoInsert(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("EmailExists", ctx, "alice@x.com", int64(0)).Return(false, nil).Once()
	f.users.On("UsernameExists", ctx, "alice", int64(0)).Return(true, nil).Once()

	_, err := f.svc.Register(ctx, registerInput())
	assert.ErrorIs(t, err, usecase.ErrConflict)

	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 事前確認後に他のリクエストが先に登録した場合
func TestRegister_UniqueViolationMapsToConflict(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("EmailExists", ctx, "alice@x.com", int64(0)).Return(false, nil).Once()
	f.users.On("UsernameExists", ctx, "alice", int64(0)).Return(false, nil).Once()
	f.users.On("Create", ctx, mock.AnythingOfType("*model.User")).Return(repo.ErrDuplicate).Once()

	_, err := f.svc.Register(ctx, registerInput())
	assert.ErrorIs(t, err, usecase.ErrConflict)
}

func TestRegister_DefaultsAndHashing(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.On("EmailExists", ctx, "alice@x.com", int64(0)).Return(false, nil).Once()
	f.users.On("UsernameExists", ctx, "alice", int64(0)).Return(false, nil).Once()
	f.users.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RoleDeveloper && u.IsActive && u.PasswordHash == "hashed:secret1"
	})).Return(nil).Once()
	f.expectIssue(ctx, 1)
	f.events.On("Publish", ctx, event.UserRegistered, "1", mock.AnythingOfType("event.UserRegisteredPayload")).Return(nil).Once()

	in := registerInput()
	in.Email = "  alice@x.com "
	res, err := f.svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", res.User.Email)
	assert.Equal(t, model.RoleDeveloper, res.User.Role)

	f.users.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestRegister_ConfirmPasswordMismatch(t *testing.T) {
	f := newAuthFixture(t)

	in := registerInput()
	in.ConfirmPassword = "other"
	_, err := f.svc.Register(context.Background(), in)

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Contains(t, he.Message, "confirmPassword")
}

// =====================
// Refresh / Logout
// =====================

func TestRefresh_RevokesOldAndLinksReplacement(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	old := &model.RefreshToken{ID: "old-id", UserID: 3, ExpiresAt: now.Add(time.Hour)}
	user := &model.User{ID: 3, Role: model.RoleTester, IsActive: true}

	f.tx.On("WithinTx", ctx).Once()
	f.tokens.On("FindByTokenHash", ctx, HashRefreshToken("plain")).Return(old, nil).Once()
	f.users.On("FindByID", ctx, int64(3)).Return(user, nil).Once()
	f.tokens.On("RevokeActive", ctx, "old-id", mock.MatchedBy(func(info repo.RevokeInfo) bool {
		return info.Reason == model.RevokeReasonRotated && info.ReplacedByID != nil && info.At.Equal(now)
	})).Return(nil).Once()
	f.expectIssue(ctx, 3)

	res, err := f.svc.Refresh(ctx, "plain")
	require.NoError(t, err)
	assert.NotEqual(t, "plain", res.RefreshToken)

	// replaced_byは新しいトークンの行ID
	var revokeInfo repo.RevokeInfo
	var created *model.RefreshToken
	for _, c := range f.tokens.Calls {
		switch c.Method {
		case "RevokeActive":
			revokeInfo = c.Arguments.Get(2).(repo.RevokeInfo)
		case "Create":
			created = c.Arguments.Get(1).(*model.RefreshToken)
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, created.ID, *revokeInfo.ReplacedByID)

	f.tx.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
}

func TestRefresh_LostRaceIsUnauthenticated(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.tx.On("WithinTx", ctx).Once()
	f.tokens.On("FindByTokenHash", ctx, mock.Anything).
		Return(&model.RefreshToken{ID: "old-id", UserID: 3, ExpiresAt: f.clock.Now().Add(time.Hour)}, nil).Once()
	f.users.On("FindByID", ctx, int64(3)).Return(&model.User{ID: 3, IsActive: true}, nil).Once()
	f.tokens.On("RevokeActive", ctx, "old-id", mock.Anything).Return(repo.ErrRefreshTokenNotFound).Once()

	_, err := f.svc.Refresh(ctx, "plain")
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
	f.tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRefresh_UserNotResolvable(t *testing.T) {
	cases := map[string]struct {
		user *model.User
		err  error
	}{
		"deleted":  {nil, repo.ErrUserNotFound},
		"inactive": {&model.User{ID: 3, IsActive: false}, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newAuthFixture(t)
			ctx := context.Background()

			f.tx.On("WithinTx", ctx).Once()
			f.tokens.On("FindByTokenHash", ctx, mock.Anything).
				Return(&model.RefreshToken{ID: "old-id", UserID: 3, ExpiresAt: f.clock.Now().Add(time.Hour)}, nil).Once()
			f.users.On("FindByID", ctx, int64(3)).Return(tc.user, tc.err).Once()

			_, err := f.svc.Refresh(ctx, "plain")
			assert.ErrorIs(t, err, usecase.ErrUnauthorized)
			f.tokens.AssertNotCalled(t, "RevokeActive", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRefresh_EmptyTokenIsValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Refresh(context.Background(), "  ")
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.tokens.On("RevokeByTokenHash", ctx, HashRefreshToken("known"), mock.Anything).Return(nil).Twice()
	f.tokens.On("RevokeByTokenHash", ctx, HashRefreshToken("broken"), mock.Anything).Return(errors.New("db down")).Once()

	assert.NoError(t, f.svc.Logout(ctx, "known"))
	assert.NoError(t, f.svc.Logout(ctx, "known"))
	assert.NoError(t, f.svc.Logout(ctx, "broken"))
	assert.NoError(t, f.svc.Logout(ctx, ""))
}
