package model

import "time"

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	FirstName    string     `gorm:"type:varchar(100);not null"`
	LastName     string     `gorm:"type:varchar(100);not null"`
	Email        string     `gorm:"type:varchar(150);uniqueIndex;not null"`
	Username     string     `gorm:"type:varchar(20);uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         Role       `gorm:"not null;default:1"`
	IsActive     bool       `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time

	RefreshTokens []RefreshToken `gorm:"constraint:OnDelete:CASCADE"`
}

// 表示名（姓名）
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	if u.FirstName == "" {
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}
