package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleLogisticsAgent Role = "LOGISTICS_AGENT"
	RoleClient         Role = "CLIENT"
)

// Account is the generic identity; capabilities derive from Role only.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Role      Role      `gorm:"size:20;not null;default:'LOGISTICS_AGENT'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (Account) TableName() string { return "accounts" }

// Principal is the caller authorization context handed to every service call.
type Principal struct {
	AccountID uuid.UUID
	Role      Role
	ClientID  *uint
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsLogisticsAgent() bool {
	return p.Role == RoleLogisticsAgent
}

func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

// CanDispatch covers fleet, tours and expedition handling.
func (p Principal) CanDispatch() bool {
	return p.IsAdmin() || p.IsLogisticsAgent()
}

// CanBill covers invoices, links and payments.
func (p Principal) CanBill() bool {
	return p.IsAdmin() || p.IsLogisticsAgent()
}

// CanManageReference covers destinations and tariffs.
func (p Principal) CanManageReference() bool {
	return p.IsAdmin()
}
