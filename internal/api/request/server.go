package request

// CreateServer registers a directory listing.
type CreateServer struct {
	Name      string  `json:"name" validate:"required,max=128"`
	GameID    string  `json:"game_id" validate:"required,slug"`
	Address   string  `json:"address" validate:"required,max=256"`
	ClusterID *string `json:"cluster_id,omitempty"`
}
