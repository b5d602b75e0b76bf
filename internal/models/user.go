package models

import "time"

// User is a directory entry. The chat service never mutates users; it only
// checks ids against the directory before touching membership state.
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
