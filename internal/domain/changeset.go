package domain

import (
	"strconv"
	"time"
)

// FieldChange is one staged audit row.
type FieldChange struct {
	Field Field
	From  string
	To    string
}

// ChangeSet is the result of diffing a patch against the current row.
// It is computed before anything is written and committed as one unit.
type ChangeSet struct {
	TicketID  int64
	Patch     TicketPatch
	Changes   []FieldChange
	UpdatedAt time.Time
}

// Empty reports whether the patch supplied no recognized field.
func (c ChangeSet) Empty() bool {
	return c.Patch.Empty()
}

// Entries renders the staged changes as audit rows stamped with UpdatedAt.
func (c ChangeSet) Entries() []AuditLogEntry {
	entries := make([]AuditLogEntry, 0, len(c.Changes))
	for _, change := range c.Changes {
		from, to := change.From, change.To
		entries = append(entries, AuditLogEntry{
			TicketID:     c.TicketID,
			FieldChanged: string(change.Field),
			FromValue:    &from,
			ToValue:      &to,
			ChangedAt:    c.UpdatedAt,
		})
	}
	return entries
}

// Diff compares every supplied field of patch against current.
//
// The comparison is textual: both sides are stringified and compared as
// strings, with null rendered as "null". Audit text renders null as "".
// A field set to its current value produces no change entry.
func Diff(current Ticket, patch TicketPatch, now time.Time) ChangeSet {
	cs := ChangeSet{TicketID: current.ID, Patch: patch, UpdatedAt: now}
	for _, field := range patch.Fields() {
		oldText, oldNull := currentText(current, field)
		newText, newNull := patchText(patch, field)
		if compareText(oldText, oldNull) == compareText(newText, newNull) {
			continue
		}
		cs.Changes = append(cs.Changes, FieldChange{
			Field: field,
			From:  auditText(oldText, oldNull),
			To:    auditText(newText, newNull),
		})
	}
	return cs
}

func compareText(text string, null bool) string {
	if null {
		return "null"
	}
	return text
}

func auditText(text string, null bool) string {
	if null {
		return ""
	}
	return text
}

func currentText(t Ticket, field Field) (string, bool) {
	switch field {
	case FieldTitle:
		return t.Title, false
	case FieldDescription:
		return stringText(t.Description)
	case FieldStatusID:
		return intText(t.StatusID)
	case FieldTypeID:
		return intText(t.TypeID)
	case FieldReleaseID:
		return intText(t.ReleaseID)
	case FieldAssignedToUserID:
		return intText(t.AssignedToUserID)
	case FieldPosition:
		return strconv.FormatInt(t.Position, 10), false
	}
	return "", true
}

func patchText(p TicketPatch, field Field) (string, bool) {
	switch field {
	case FieldTitle:
		return stringText(p.Title.Ptr())
	case FieldDescription:
		return stringText(p.Description.Ptr())
	case FieldStatusID:
		return intText(p.StatusID.Ptr())
	case FieldTypeID:
		return intText(p.TypeID.Ptr())
	case FieldReleaseID:
		return intText(p.ReleaseID.Ptr())
	case FieldAssignedToUserID:
		return intText(p.AssignedToUserID.Ptr())
	case FieldPosition:
		return intText(p.Position.Ptr())
	}
	return "", true
}

func stringText(v *string) (string, bool) {
	if v == nil {
		return "", true
	}
	return *v, false
}

func intText(v *int64) (string, bool) {
	if v == nil {
		return "", true
	}
	return strconv.FormatInt(*v, 10), false
}
