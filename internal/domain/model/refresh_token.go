package model

import "time"

// リフレッシュトークン（平文は保存しない。SHA-256のダイジェストで照合する）
type RefreshToken struct {
	ID            string     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        int64      `json:"userId" gorm:"not null;index"`
	TokenHash     string     `json:"-" gorm:"not null;uniqueIndex"`
	ExpiresAt     time.Time  `json:"expiresAt" gorm:"not null;index"`
	CreatedAt     time.Time  `json:"createdAt" gorm:"not null"`
	IsRevoked     bool       `json:"isRevoked" gorm:"not null;default:false"`
	RevokedAt     *time.Time `json:"revokedAt" gorm:"index"`
	ReasonRevoked string     `json:"reasonRevoked" gorm:"type:varchar(100)"`
	ReplacedByID  *string    `json:"replacedById" gorm:"type:uuid"`
}

// 失効理由
const (
	RevokeReasonRotated = "rotated"
	RevokeReasonLogout  = "logout"
)

// 有効かどうか（期限は厳密に未来であること）
func (t RefreshToken) IsActiveAt(now time.Time) bool {
	return !t.IsRevoked && t.ExpiresAt.After(now)
}
