package models

import "time"

// User is a registered account. Password holds the bcrypt hash once persisted.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=3,max=100"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,email"`
	Password  string    `json:"password,omitempty" gorm:"type:varchar(255);not null" validate:"required,min=6"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the view of a user that other users may see.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Public strips everything but id and username.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}

// Identity is the verified caller attached to a request by the auth gate.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
