package shared

// BaseAggregateRoot is an entity guarded by optimistic locking. Every state
// transition increments Version, and repositories only write a row whose
// stored version is still Version-1.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion records one state transition
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}
