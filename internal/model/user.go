package model

import (
	"time"
)

type UserRole string

const (
	Trainee    UserRole = "trainee"
	Instructor UserRole = "instructor"
)

func (r UserRole) Valid() bool {
	return r == Trainee || r == Instructor
}

// swagger:model User
type User struct {
	BaseModel
	Username  string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;not null;default:'trainee'" json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	IsActive  bool       `gorm:"not null;default:true" json:"isActive"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsInstructor() bool {
	return u.Role == Instructor
}
