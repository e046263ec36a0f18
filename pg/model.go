package pg

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// BaseModel provides common timestamp fields that can be embedded in other models.
type BaseModel struct {
	CreatedAt time.Time `bun:",nullzero" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*BaseModel)(nil)

// BeforeAppendModel stamps CreatedAt on insert and UpdatedAt on insert and update.
func (m *BaseModel) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now()
	switch query.(type) {
	case *bun.InsertQuery:
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
	case *bun.UpdateQuery:
		m.UpdatedAt = now
	}
	return nil
}

// SoftDeleteModel marks rows as deleted instead of removing them.
// Embed it in a model and build the repository with a soft delete strategy.
type SoftDeleteModel struct {
	Deleted   bool      `bun:"is_deleted,notnull,default:false" json:"is_deleted"`
	DeletedAt time.Time `bun:"deleted_at,nullzero"              json:"deleted_at,omitempty"`
}

// MarkDeleted flags the row as deleted at the given time.
func (m *SoftDeleteModel) MarkDeleted(at time.Time) {
	m.Deleted = true
	m.DeletedAt = at
}

// IsDeleted reports whether the row is flagged as deleted.
func (m *SoftDeleteModel) IsDeleted() bool {
	return m.Deleted
}

// Restore clears the deleted flag and timestamp.
func (m *SoftDeleteModel) Restore() {
	m.Deleted = false
	m.DeletedAt = time.Time{}
}
