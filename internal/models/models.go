package models

import "time"

type User struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username            string `gorm:"uniqueIndex;not null"     json:"username"`
	Email               string `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash        string `gorm:"not null"                 json:"-"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	Active              bool   `gorm:"default:true"             json:"active"`
	ForcePasswordChange bool   `gorm:"default:false"            json:"force_password_change"`
}

type Role struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"uniqueIndex;not null"     json:"name"`
	IsSystem bool   `gorm:"default:false"            json:"is_system"`
}

// RolePermission assigns a permission string to a role. Permissions are not
// a catalog table of their own; the recognized strings live in the authz
// registry.
type RolePermission struct {
	ID         uint   `gorm:"primaryKey"                       json:"id"`
	RoleID     uint   `gorm:"not null;uniqueIndex:idx_role_perm" json:"role_id"`
	Permission string `gorm:"not null;uniqueIndex:idx_role_perm" json:"permission"`
}

type UserRole struct {
	ID     uint `gorm:"primaryKey"                       json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID uint `gorm:"not null;uniqueIndex:idx_user_role" json:"role_id"`
}

// UserPermission is a direct grant bypassing roles.
type UserPermission struct {
	ID         uint   `gorm:"primaryKey"                       json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_user_perm" json:"user_id"`
	Permission string `gorm:"not null;uniqueIndex:idx_user_perm" json:"permission"`
}

type Container struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"not null"                 json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type Device struct {
	ID              uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string `gorm:"not null"                 json:"name"`
	InventoryNumber string `gorm:"uniqueIndex;not null"     json:"inventory_number"`
	DeviceType      string `json:"device_type"`
	ContainerID     *uint  `gorm:"index"                    json:"container_id"`
	Available       bool   `gorm:"default:true"             json:"available"`
	Notes           string `json:"notes"`
}

type Lending struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID     uint       `gorm:"index;not null"           json:"device_id"`
	UserID       uint       `gorm:"index;not null"           json:"user_id"`
	BorrowerName string     `json:"borrower_name"`
	StartedAt    time.Time  `gorm:"not null"                 json:"started_at"`
	DueAt        time.Time  `gorm:"not null"                 json:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at"`
}

type ErrorReport struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID    uint      `gorm:"index;not null"           json:"device_id"`
	ReporterID  uint      `gorm:"index;not null"           json:"reporter_id"`
	Description string    `gorm:"not null"                 json:"description"`
	Resolved    bool      `gorm:"default:false"            json:"resolved"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   uint      `gorm:"index"                    json:"actor_id"`
	Action    string    `gorm:"not null"                 json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
