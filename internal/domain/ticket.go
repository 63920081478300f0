package domain

import "time"

// Ticket is a trackable work item placed on the board.
type Ticket struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	StatusID         *int64    `json:"status_id"`
	TypeID           *int64    `json:"type_id"`
	ReleaseID        *int64    `json:"release_id"`
	AssignedToUserID *int64    `json:"assigned_to_user_id"`
	Position         int64     `json:"position"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate pointer fields freely.
func (t Ticket) Clone() Ticket {
	out := t
	out.Description = cloneString(t.Description)
	out.StatusID = cloneInt(t.StatusID)
	out.TypeID = cloneInt(t.TypeID)
	out.ReleaseID = cloneInt(t.ReleaseID)
	out.AssignedToUserID = cloneInt(t.AssignedToUserID)
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
