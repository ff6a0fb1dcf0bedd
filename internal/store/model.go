package store

// SeedRecord is the durable seed for one view: the identity pair plus the
// encoded starting value and its type tag.
type SeedRecord struct {
	EntityID  string
	ViewName  string
	ValueJSON string
	ValueType string
}

// ChangeRecord is one drained change queued for appending to a view's
// change stream.
type ChangeRecord struct {
	EntityID    string
	ViewName    string
	Op          string
	PayloadJSON string
}

// AppendedChange reports the stream position assigned to an appended record.
type AppendedChange struct {
	ChangeID string
	ViewName string
	Seq      int64
}

// StoredChange is a change record read back from a view's stream.
type StoredChange struct {
	Seq              int64
	ChangeID         string
	Op               string
	PayloadJSON      string
	AppliedAtSeconds int64
}

// StoredSeed is a seed record read back for an entity.
type StoredSeed struct {
	ViewName        string
	ValueJSON       string
	ValueType       string
	SeededAtSeconds int64
}

// ViewInit models the persisted seed row, written once per view instance.
type ViewInit struct {
	EntityID        string `gorm:"column:entity_id;primaryKey;size:190;not null"`
	ViewName        string `gorm:"column:view_name;primaryKey;size:190;not null"`
	ValueJSON       string `gorm:"column:value_json;type:text;not null"`
	ValueType       string `gorm:"column:value_type;size:64;not null"`
	SeededAtSeconds int64  `gorm:"column:seeded_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ViewInit) TableName() string {
	return "view_inits"
}

// ViewChange models the append-only change stream, ordered per view by the
// autoincremented sequence.
type ViewChange struct {
	Seq              int64  `gorm:"column:seq;primaryKey;autoIncrement"`
	ChangeID         string `gorm:"column:change_id;size:190;not null;uniqueIndex:idx_view_changes_change_id"`
	EntityID         string `gorm:"column:entity_id;size:190;not null;index:idx_view_changes_stream,priority:1"`
	ViewName         string `gorm:"column:view_name;size:190;not null;index:idx_view_changes_stream,priority:2"`
	Op               string `gorm:"column:op;size:64;not null"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ViewChange) TableName() string {
	return "view_changes"
}
