package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"teamflow/internal/domain/model"
	repo "teamflow/internal/repository"
	"teamflow/internal/validator"
)

// APIで返すユーザー（パスワードハッシュは含めない）
type UserDTO struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	FullName    string     `json:"fullName"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        model.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// model.UserをAPI返却用DTOに変換
func ToUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func toUserDTOs(users []model.User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, ToUserDTO(&users[i]))
	}
	return out
}

// 管理者によるユーザー作成
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
	Role      *model.Role
}

// 部分更新（nilは変更なし）
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Username  *string
	Role      *model.Role
	IsActive  *bool
}

type UserUsecase struct {
	users  repo.UserRepository
	tx     repo.TransactionManager
	hasher PasswordHasher
	clock  Clock
	search *TaskIndexSync
}

// DI
func NewUserUsecase(users repo.UserRepository, tx repo.TransactionManager, hasher PasswordHasher, clock Clock) *UserUsecase {
	return &UserUsecase{
		users:  users,
		tx:     tx,
		hasher: hasher,
		clock:  clock,
	}
}

// 有効ユーザーの一覧
func (u *UserUsecase) List(ctx context.Context) ([]UserDTO, error) {
	users, err := u.users.List(ctx, repo.UserListFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return toUserDTOs(users), nil
}

// 無効ユーザーは見つからない扱い
func (u *UserUsecase) Get(ctx context.Context, id int64) (UserDTO, error) {
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return UserDTO{}, mapRepoError(err, "user not found")
	}
	if !user.IsActive {
		return UserDTO{}, NotFoundError("user not found")
	}
	return ToUserDTO(user), nil
}

// ロールは整数（1..6）で受ける。範囲外は400
func (u *UserUsecase) ListByRole(ctx context.Context, roleValue int) ([]UserDTO, error) {
	role, ok := model.RoleFromInt(roleValue)
	if !ok {
		return nil, ValidationError("invalid role")
	}

	users, err := u.users.List(ctx, repo.UserListFilter{ActiveOnly: true, Role: &role})
	if err != nil {
		return nil, err
	}
	return toUserDTOs(users), nil
}

func (u *UserUsecase) Create(ctx context.Context, in CreateUserInput) (UserDTO, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if err := validator.ValidateUserFields(validator.UserFields{
		FirstName: &in.FirstName,
		LastName:  &in.LastName,
		Email:     &in.Email,
		Username:  &in.Username,
		Password:  &in.Password,
	}); err != nil {
		return UserDTO{}, InvalidInput(err)
	}

	role := model.DefaultRole
	if in.Role != nil {
		if !in.Role.Valid() {
			return UserDTO{}, ValidationError("invalid role")
		}
		role = *in.Role
	}

	if err := EnsureUniqueLogin(ctx, u.users, in.Email, in.Username, 0); err != nil {
		return UserDTO{}, err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserDTO{}, err
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hashed,
		Role:         role,
		IsActive:     true,
		CreatedAt:    u.clock.Now(),
	}
	if err := u.users.Create(ctx, user); err != nil {
		return UserDTO{}, mapUniqueLoginError(err)
	}
	return ToUserDTO(user), nil
}

func (u *UserUsecase) Update(ctx context.Context, actorID int64, id int64, in UpdateUserInput) (UserDTO, error) {
	in.FirstName = trimmedPtr(in.FirstName)
	in.LastName = trimmedPtr(in.LastName)
	in.Email = trimmedPtr(in.Email)
	in.Username = trimmedPtr(in.Username)

	if err := validator.ValidateUserFields(validator.UserFields{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Username:  in.Username,
	}); err != nil {
		return UserDTO{}, InvalidInput(err)
	}
	if in.Role != nil && !in.Role.Valid() {
		return UserDTO{}, ValidationError("invalid role")
	}

	var out UserDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "user not found")
		}

		email, username := "", ""
		if in.Email != nil && *in.Email != user.Email {
			email = *in.Email
		}
		if in.Username != nil && *in.Username != user.Username {
			username = *in.Username
		}
		if err := EnsureUniqueLogin(ctx, r.Users(), email, username, user.ID); err != nil {
			return err
		}

		before := *user
		if in.FirstName != nil {
			user.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			user.LastName = *in.LastName
		}
		if in.Email != nil {
			user.Email = *in.Email
		}
		if in.Username != nil {
			user.Username = *in.Username
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}

		if err := r.Users().Update(ctx, user); err != nil {
			return mapUniqueLoginError(err)
		}

		now := u.clock.Now()
		if before.Role != user.Role {
			if err := r.AuditLogs().Create(ctx, model.AuditLog{
				ActorUserID:  actorID,
				Action:       model.AuditActionChangeRole,
				ResourceType: model.AuditResourceUser,
				ResourceID:   user.ID,
				BeforeJSON:   auditJSON(map[string]any{"role": before.Role}),
				AfterJSON:    auditJSON(map[string]any{"role": user.Role}),
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}
		if before.IsActive != user.IsActive {
			if err := writeActiveAudit(ctx, r, actorID, user.ID, before.IsActive, user.IsActive, now); err != nil {
				return err
			}
		}

		out = ToUserDTO(user)
		return nil
	})
	if err != nil {
		return UserDTO{}, err
	}
	return out, nil
}

// 作成したエピック/タスクがあるユーザーは消せない（409）
// WithTaskIndex は削除で担当が外れたタスクを検索インデックスにも反映させる
func (u *UserUsecase) WithTaskIndex(s *TaskIndexSync) *UserUsecase {
	u.search = s
	return u
}

func (u *UserUsecase) Delete(ctx context.Context, actorID int64, id int64) error {
	affected := u.search.Affected(ctx, repo.TaskListFilter{AssignedToID: &id})

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "user not found")
		}

		if err := r.Users().Delete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrInUse) {
				return ConflictError("user still owns epics or tasks")
			}
			return mapRepoError(err, "user not found")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionDeleteUser,
			ResourceType: model.AuditResourceUser,
			ResourceID:   id,
			BeforeJSON:   auditJSON(ToUserDTO(user)),
			AfterJSON:    "{}",
			CreatedAt:    u.clock.Now(),
		})
	})
	if err != nil {
		return err
	}
	u.search.Refresh(ctx, affected)
	return nil
}

// 有効化・無効化。変化がなければ監査ログは残さない
func (u *UserUsecase) SetActive(ctx context.Context, actorID int64, id int64, active bool) error {
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, id)
		if err != nil {
			return mapRepoError(err, "user not found")
		}
		if user.IsActive == active {
			return nil
		}

		user.IsActive = active
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		return writeActiveAudit(ctx, r, actorID, id, !active, active, u.clock.Now())
	})
}

func writeActiveAudit(ctx context.Context, r repo.TxRepos, actorID, userID int64, before, after bool, at time.Time) error {
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionChangeActive,
		ResourceType: model.AuditResourceUser,
		ResourceID:   userID,
		BeforeJSON:   auditJSON(map[string]any{"isActive": before}),
		AfterJSON:    auditJSON(map[string]any{"isActive": after}),
		CreatedAt:    at,
	})
}

// EnsureUniqueLogin はemail/usernameが他のユーザーに使われていれば409。
// 空文字の項目は確認しない
func EnsureUniqueLogin(ctx context.Context, users repo.UserRepository, email, username string, excludeID int64) error {
	if email != "" {
		exists, err := users.EmailExists(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return ConflictError("email already exists")
		}
	}
	if username != "" {
		exists, err := users.UsernameExists(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return ConflictError("username already exists")
		}
	}
	return nil
}

// 事前確認をすり抜けた同時登録も一意制約で409になる
func mapUniqueLoginError(err error) error {
	if errors.Is(err, repo.ErrDuplicate) {
		return ConflictError("email or username already exists")
	}
	return err
}
