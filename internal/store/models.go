package store

import "time"

// Info describes one saved snapshot.
type Info struct {
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
	Slices  int       `json:"slices"`
	Current string    `json:"current_task,omitempty"`
}
