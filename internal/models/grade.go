package models

import "time"

// Grade groups classes of the same level attending the same session.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     int       `db:"level" json:"level"`
	Session   Session   `db:"session" json:"session"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
