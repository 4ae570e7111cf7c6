package audit

import "time"

type Log struct {
	ID         int64     `gorm:"primaryKey"`
	Action     string    `gorm:"column:action;not null;index"`
	EntityType string    `gorm:"column:entity_type;not null"`
	EntityID   *int64    `gorm:"column:entity_id"`
	EntityName string    `gorm:"column:entity_name"`
	Details    string    `gorm:"column:details"`
	ActorEmail string    `gorm:"column:actor_email;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Log) TableName() string {
	return "audit_logs"
}
