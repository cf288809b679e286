package event

import (
	"context"
	"time"
)

// イベントの種類（トピック内でtypeとして送る）
type Type string

const (
	UserRegistered    Type = "user.registered"
	UserLoggedIn      Type = "user.logged_in"
	TaskCreated       Type = "task.created"
	TaskStatusChanged Type = "task.status_changed"
	TaskAssigned      Type = "task.assigned"
	EpicCreated       Type = "epic.created"
)

// 送信される封筒
type Envelope struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher はドメインイベントを外へ流す。
// keyは同じ対象のイベントを同じパーティションに寄せるために使う。
type Publisher interface {
	Publish(ctx context.Context, t Type, key string, payload any) error
}

// 何もしない（ブローカー未設定時）
type Nop struct{}

func (Nop) Publish(context.Context, Type, string, any) error { return nil }

type UserRegisteredPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type UserLoggedInPayload struct {
	UserID int64 `json:"userId"`
}

type TaskCreatedPayload struct {
	TaskID      int64  `json:"taskId"`
	Title       string `json:"title"`
	EpicID      *int64 `json:"epicId,omitempty"`
	CreatedByID int64  `json:"createdById"`
}

type TaskStatusChangedPayload struct {
	TaskID      int64  `json:"taskId"`
	From        string `json:"from"`
	To          string `json:"to"`
	ChangedByID int64  `json:"changedById"`
}

type TaskAssignedPayload struct {
	TaskID       int64 `json:"taskId"`
	AssigneeID   int64 `json:"assigneeId"`
	AssignedByID int64 `json:"assignedById"`
}

type EpicCreatedPayload struct {
	EpicID      int64  `json:"epicId"`
	Title       string `json:"title"`
	CreatedByID int64  `json:"createdById"`
}
