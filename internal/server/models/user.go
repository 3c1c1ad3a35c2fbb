// Package models defines server-side data models.
package models

import "time"

type User struct {
	ID           string
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}
