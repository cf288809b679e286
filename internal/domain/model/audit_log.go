package model

import "time"

// 管理系の操作の種類
type AuditAction string

const (
	//ロール変更
	AuditActionChangeRole AuditAction = "CHANGE_ROLE"
	//有効化・無効化
	AuditActionChangeActive AuditAction = "CHANGE_ACTIVE"
	//ユーザー削除
	AuditActionDeleteUser AuditAction = "DELETE_USER"
	//タスクのステータス変更
	AuditActionChangeTaskStatus AuditAction = "CHANGE_TASK_STATUS"
	//タスクの担当者変更
	AuditActionAssignTask AuditAction = "ASSIGN_TASK"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceUser AuditResourceType = "user"
	AuditResourceTask AuditResourceType = "task"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID
	ActorUserID int64 `gorm:"not null;index" json:"actorUserId"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resourceType"`

	ResourceID int64 `gorm:"not null;index" json:"resourceId"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before"`
	AfterJSON  string `gorm:"type:text" json:"after"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
