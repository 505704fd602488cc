package model

import "time"

type Server struct {
	ID        string    `json:"id" db:"id"`
	ClusterID *string   `json:"cluster_id,omitempty" db:"cluster_id"`
	Name      string    `json:"name" db:"name"`
	GameID    string    `json:"game_id" db:"game_id"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
