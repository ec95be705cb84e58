package models

import "time"

const (
	RoleStudent = "student"
	RoleOwner   = "owner"
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Phone         string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Email         *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	EmailVerified bool      `gorm:"not null;default:false" json:"email_verified"`
	Role          string    `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	PasswordHash  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Wallet        *Wallet   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"wallet,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) IsOwner() bool { return u.Role == RoleOwner }

// EligibleForStudentDiscount reports whether the user gets the campus price.
func (u *User) EligibleForStudentDiscount() bool {
	return u.Role == RoleStudent && u.EmailVerified && u.Email != nil && *u.Email != ""
}
