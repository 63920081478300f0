package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func baseTicket() Ticket {
	return Ticket{
		ID:          10,
		Title:       "Audit Target",
		Description: ptr("first draft"),
		StatusID:    ptr(int64(1)),
		Position:    0,
	}
}

func TestDiffRecordsEachChangedField(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	patch := TicketPatch{
		StatusID:         Set(int64(2)),
		TypeID:           Set(int64(3)),
		AssignedToUserID: Set(int64(5)),
	}

	cs := Diff(baseTicket(), patch, now)

	require.Len(t, cs.Changes, 3)
	assert.Equal(t, FieldChange{Field: FieldStatusID, From: "1", To: "2"}, cs.Changes[0])
	assert.Equal(t, FieldChange{Field: FieldTypeID, From: "", To: "3"}, cs.Changes[1])
	assert.Equal(t, FieldChange{Field: FieldAssignedToUserID, From: "", To: "5"}, cs.Changes[2])
	assert.Equal(t, now, cs.UpdatedAt)
	assert.Equal(t, int64(10), cs.TicketID)
}

func TestDiffSkipsUnchangedFields(t *testing.T) {
	patch := TicketPatch{
		Title:       Set("Audit Target"),
		Description: Set("second draft"),
	}

	cs := Diff(baseTicket(), patch, time.Now())

	require.Len(t, cs.Changes, 1)
	assert.Equal(t, FieldDescription, cs.Changes[0].Field)
	assert.Equal(t, "first draft", cs.Changes[0].From)
	assert.Equal(t, "second draft", cs.Changes[0].To)
	assert.False(t, cs.Empty())
}

func TestDiffTextualComparison(t *testing.T) {
	tests := []struct {
		name        string
		current     Ticket
		patch       TicketPatch
		wantChanged bool
		wantFrom    string
		wantTo      string
	}{
		{
			name:        "explicit null clears a foreign key",
			current:     baseTicket(),
			patch:       TicketPatch{StatusID: Null[int64]()},
			wantChanged: true, wantFrom: "1", wantTo: "",
		},
		{
			name:    "null to null is unchanged",
			current: Ticket{ID: 1, Title: "t"},
			patch:   TicketPatch{ReleaseID: Null[int64]()},
		},
		{
			name:        "null description to empty string differs textually",
			current:     Ticket{ID: 1, Title: "t"},
			patch:       TicketPatch{Description: Set("")},
			wantChanged: true, wantFrom: "", wantTo: "",
		},
		{
			name:    "literal null text equals a null column",
			current: Ticket{ID: 1, Title: "t", Description: ptr("null")},
			patch:   TicketPatch{Description: Null[string]()},
		},
		{
			name:        "position zero is rendered as digits",
			current:     Ticket{ID: 1, Title: "t", Position: 0},
			patch:       TicketPatch{Position: Set(int64(4))},
			wantChanged: true, wantFrom: "0", wantTo: "4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Diff(tt.current, tt.patch, time.Now())
			if !tt.wantChanged {
				assert.Empty(t, cs.Changes)
				return
			}
			require.Len(t, cs.Changes, 1)
			assert.Equal(t, tt.wantFrom, cs.Changes[0].From)
			assert.Equal(t, tt.wantTo, cs.Changes[0].To)
		})
	}
}

func TestDiffIsIdempotentOnceApplied(t *testing.T) {
	current := baseTicket()
	patch := TicketPatch{StatusID: Set(int64(2)), Title: Set("Renamed")}

	first := Diff(current, patch, time.Now())
	require.Len(t, first.Changes, 2)

	patch.ApplyTo(&current)
	second := Diff(current, patch, time.Now())
	assert.Empty(t, second.Changes)
	assert.False(t, second.Empty(), "the patch still names fields, so the row is still written")
}

func TestChangeSetEntries(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cs := Diff(baseTicket(), TicketPatch{StatusID: Set(int64(2))}, now)

	entries := cs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].TicketID)
	assert.Equal(t, "status_id", entries[0].FieldChanged)
	assert.Equal(t, "1", *entries[0].FromValue)
	assert.Equal(t, "2", *entries[0].ToValue)
	assert.Equal(t, now, entries[0].ChangedAt)
}

func TestEmptyPatch(t *testing.T) {
	cs := Diff(baseTicket(), TicketPatch{}, time.Now())
	assert.True(t, cs.Empty())
	assert.Empty(t, cs.Changes)
}
