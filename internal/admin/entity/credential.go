package entity

import "time"

// Credential is a row of store.sys_admin_user. The email is kept twice: AES
// ciphertext for display and a SHA-256 digest that serves as the login key.
type Credential struct {
	ID           int64      `db:"sys_user_id" json:"-"`
	UUID         string     `db:"sys_user_uuid" json:"user_uuid"`
	EmailAES     string     `db:"sys_user_email_aes" json:"email_aes"`
	EmailSHA     string     `db:"sys_user_email_sha" json:"-"`
	PasswordHash string     `db:"sys_user_password" json:"-"`
	CreatedAt    time.Time  `db:"sys_user_created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"sys_user_updated_at" json:"updated_at,omitempty"`
	Attempts     int        `db:"sys_user_attempts" json:"attempts"`
	LastAttempt  *time.Time `db:"sys_user_last_attempt" json:"last_attempt,omitempty"`
	Enabled      bool       `db:"sys_user_enabled" json:"enabled"`
}

// View is the public projection returned by the admin endpoints.
type View struct {
	UUID      string    `json:"user_uuid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Enabled   bool      `json:"enabled"`
}
