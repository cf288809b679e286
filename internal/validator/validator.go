package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"teamflow/internal/domain/model"
)

// Error は入力不正。Messageはそのままクライアントに返す
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Field + " " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

const (
	maxNameLen     = 100
	maxEmailLen    = 150
	maxUsernameLen = 20
	minPasswordLen = 6
	maxPasswordLen = 100
)

// 会員登録の入力
type Register struct {
	FirstName       string
	LastName        string
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// ユーザー作成・更新の入力（nilは変更なし）
type UserFields struct {
	FirstName *string
	LastName  *string
	Email     *string
	Username  *string
	Password  *string
}

// サインアップの入力を検証
func ValidateRegister(in Register) error {
	if err := ValidateUserFields(UserFields{
		FirstName: &in.FirstName,
		LastName:  &in.LastName,
		Email:     &in.Email,
		Username:  &in.Username,
		Password:  &in.Password,
	}); err != nil {
		return err
	}
	if in.ConfirmPassword != in.Password {
		return invalid("confirmPassword", "must match password")
	}
	return nil
}

// ログインの入力を検証（emailかusernameのどちらか必須）
func ValidateLogin(email, username, password string) error {
	if strings.TrimSpace(email) == "" && strings.TrimSpace(username) == "" {
		return invalid("email", "or userName is required")
	}
	if password == "" {
		return invalid("password", "is required")
	}
	return nil
}

func ValidateRefreshToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("refreshToken", "is required")
	}
	return nil
}

// 渡された項目だけ検証
func ValidateUserFields(in UserFields) error {
	if in.FirstName != nil {
		if err := requiredText("firstName", *in.FirstName, maxNameLen); err != nil {
			return err
		}
	}
	if in.LastName != nil {
		if err := requiredText("lastName", *in.LastName, maxNameLen); err != nil {
			return err
		}
	}
	if in.Email != nil {
		if err := requiredText("email", *in.Email, maxEmailLen); err != nil {
			return err
		}
		if !isEmail(*in.Email) {
			return invalid("email", "is invalid")
		}
	}
	if in.Username != nil {
		if err := requiredText("username", *in.Username, maxUsernameLen); err != nil {
			return err
		}
		if !usernamePattern.MatchString(*in.Username) {
			return invalid("username", "may contain letters, digits, '.', '_' and '-' only")
		}
	}
	if in.Password != nil {
		n := utf8.RuneCountInString(*in.Password)
		if n < minPasswordLen || n > maxPasswordLen {
			return invalid("password", "must be %d to %d characters", minPasswordLen, maxPasswordLen)
		}
	}
	return nil
}

// エピック・タスク共通の項目（nilは変更なし）
type WorkItemFields struct {
	Title              *string
	Description        *string
	AcceptanceCriteria *string
	Notes              *string
	Effort             *int
}

const (
	maxTitleLen           = 200
	maxEpicDescription    = 1000
	maxTaskDescription    = 2000
	maxTaskCriteriaOrNote = 500
)

func ValidateEpic(in WorkItemFields) error {
	if in.Title != nil {
		if err := requiredText("title", *in.Title, maxTitleLen); err != nil {
			return err
		}
	}
	if in.Description != nil {
		if err := optionalText("description", *in.Description, maxEpicDescription); err != nil {
			return err
		}
	}
	return nil
}

func ValidateTask(in WorkItemFields) error {
	if in.Title != nil {
		if err := requiredText("title", *in.Title, maxTitleLen); err != nil {
			return err
		}
	}
	if in.Description != nil {
		if err := optionalText("description", *in.Description, maxTaskDescription); err != nil {
			return err
		}
	}
	if in.AcceptanceCriteria != nil {
		if err := optionalText("acceptanceCriteria", *in.AcceptanceCriteria, maxTaskCriteriaOrNote); err != nil {
			return err
		}
	}
	if in.Notes != nil {
		if err := optionalText("notes", *in.Notes, maxTaskCriteriaOrNote); err != nil {
			return err
		}
	}
	if in.Effort != nil && (*in.Effort < model.MinEffort || *in.Effort > model.MaxEffort) {
		return invalid("effort", "must be between %d and %d", model.MinEffort, model.MaxEffort)
	}
	return nil
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func requiredText(field, v string, max int) error {
	if strings.TrimSpace(v) == "" {
		return invalid(field, "is required")
	}
	return optionalText(field, v, max)
}

func optionalText(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return invalid(field, "must be at most %d characters", max)
	}
	return nil
}

// 表示名付き（"A <a@x>"）は受け付けない
func isEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
