package model

import "time"

// タスク（ワークアイテム）
type Task struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement"`
	Title              string         `gorm:"type:varchar(200);not null"`
	Description        string         `gorm:"type:varchar(2000);not null;default:''"`
	CreatedAt          time.Time      `gorm:"not null"`
	DueDate            *time.Time     `gorm:"index"`
	StartedAt          *time.Time
	CompletedAt        *time.Time
	Status             WorkItemStatus `gorm:"not null;default:1;index"`
	Priority           TaskPriority   `gorm:"not null;default:2;index"`
	Effort             int            `gorm:"not null;default:1"`
	AcceptanceCriteria string         `gorm:"type:varchar(500);not null;default:''"`
	Notes              string         `gorm:"type:varchar(500);not null;default:''"`
	CreatedByID        int64          `gorm:"not null;index"`
	AssignedToID       *int64         `gorm:"index"`
	EpicID             *int64         `gorm:"index"`
}

// 工数の範囲
const (
	MinEffort = 1
	MaxEffort = 100
)

// ApplyStatus はステータスを変え、開始・完了時刻を「初回だけ」記録する。
// 同じステータスを何度入れても時刻は上書きしない。
func (t *Task) ApplyStatus(status WorkItemStatus, now time.Time) {
	t.Status = status

	switch status {
	case StatusInProgress:
		if t.StartedAt == nil {
			at := now
			t.StartedAt = &at
		}
	case StatusDone:
		if t.CompletedAt == nil {
			at := now
			t.CompletedAt = &at
		}
	}
}

// タスクのコメント（件数だけAPIに出す）
type TaskComment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	TaskID      int64     `gorm:"not null;index"`
	Content     string    `gorm:"type:varchar(2000);not null"`
	CreatedAt   time.Time `gorm:"not null"`
	CreatedByID int64     `gorm:"not null;index"`
}

// タスクの添付ファイル（件数だけAPIに出す）
type TaskAttachment struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	TaskID       int64     `gorm:"not null;index"`
	FileName     string    `gorm:"type:varchar(255);not null"`
	FileType     string    `gorm:"type:varchar(100);not null"`
	FilePath     string    `gorm:"type:varchar(500);not null"`
	FileSize     int64     `gorm:"not null"`
	UploadedAt   time.Time `gorm:"not null"`
	UploadedByID int64     `gorm:"not null;index"`
}
