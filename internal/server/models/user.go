package models

import "time"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanTeam Plan = "team"
)

const gib = int64(1) << 30

// Quota returns the storage allowance of the plan in bytes.
func (p Plan) Quota() int64 {
	switch p {
	case PlanPro:
		return 200 * gib
	case PlanTeam:
		return 1024 * gib
	default:
		return 2 * gib
	}
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Plan         Plan
	StorageUsed  int64
	IsBlocked    bool
	CreatedAt    time.Time
}
