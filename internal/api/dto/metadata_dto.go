package dto

// CreateMetadataRequest is accepted for every taxonomy kind. Position is read
// for statuses only; Email and AvatarURL for users only.
type CreateMetadataRequest struct {
	Name      string  `json:"name"`
	Position  *int64  `json:"position"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}
