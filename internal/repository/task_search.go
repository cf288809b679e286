package repository

import (
	"context"
	"time"
)

// 検索エンジンに入れるタスクの形
type TaskDocument struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	AssignedToID *int64    `json:"assignedToId,omitempty"`
	EpicID       *int64    `json:"epicId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TaskSearchIndex は全文検索用のインデックス。
// Searchはヒットしたタスクのid（スコア順）と総件数を返す。
type TaskSearchIndex interface {
	Index(ctx context.Context, doc TaskDocument) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, limit int, offset int) ([]int64, int64, error)
}
