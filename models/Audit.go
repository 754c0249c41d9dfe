package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	AdminUserID  string         `json:"admin_user_id" gorm:"type:varchar(36);index;not null"`
	Action       string         `json:"action" gorm:"size:64;index"`
	ResourceType string         `json:"resource_type" gorm:"size:64;index"`
	ResourceID   string         `json:"resource_id" gorm:"type:varchar(36);index"`
	Before       datatypes.JSON `json:"before,omitempty"`
	After        datatypes.JSON `json:"after,omitempty"`
	IPAddress    string         `json:"ip_address" gorm:"size:64"`
	CreatedAt    time.Time      `json:"created_at"`
}
