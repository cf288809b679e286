package model

import "time"

type Epic struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	Title       string         `gorm:"type:varchar(200);not null"`
	Description string         `gorm:"type:varchar(1000);not null;default:''"`
	CreatedAt   time.Time      `gorm:"not null"`
	DueDate     *time.Time     `gorm:"index"`
	Status      WorkItemStatus `gorm:"not null;default:1;index"`
	Priority    TaskPriority   `gorm:"not null;default:2;index"`
	CreatedByID int64          `gorm:"not null;index"`
}
