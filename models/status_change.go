package models

import "time"

// StatusChange protokolliert einen erfolgreichen Statuswechsel eines RAFT.
type StatusChange struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	RaftID     string    `json:"raftId" gorm:"index;not null"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus" gorm:"not null"`
	ChangedBy  string    `json:"changedBy,omitempty"`
	Reason     string    `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

func (StatusChange) TableName() string {
	return "raft_status_history"
}
