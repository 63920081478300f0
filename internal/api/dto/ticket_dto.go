package dto

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	StatusID         *int64  `json:"status_id"`
	TypeID           *int64  `json:"type_id"`
	ReleaseID        *int64  `json:"release_id"`
	AssignedToUserID *int64  `json:"assigned_to_user_id"`
	Position         *int64  `json:"position"`
}

// DeleteTicketResponse confirms a deletion.
type DeleteTicketResponse struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}
