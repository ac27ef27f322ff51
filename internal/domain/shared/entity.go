package shared

import "time"

// BaseEntity is the identity and audit stamps of a stored record. The
// database assigns ID on insert.
type BaseEntity struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{CreatedAt: now, UpdatedAt: now}
}

// Touch stamps UpdatedAt
func (e *BaseEntity) Touch() { e.UpdatedAt = time.Now() }
