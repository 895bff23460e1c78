// Package model defines domain entities for the application.
package model

import "time"

// User is the only persisted entity. ID and CreatedAt are assigned by the
// store on creation and never change afterwards.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
