package domain

import "time"

// AuditLogEntry is an immutable record of one field change on one ticket.
type AuditLogEntry struct {
	ID           int64     `json:"id"`
	TicketID     int64     `json:"ticket_id"`
	FieldChanged string    `json:"field_changed"`
	FromValue    *string   `json:"from_value"`
	ToValue      *string   `json:"to_value"`
	ChangedAt    time.Time `json:"changed_at"`
}
