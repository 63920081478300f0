package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field names a mutable ticket column as it appears on the wire and in audit rows.
type Field string

const (
	FieldTitle            Field = "title"
	FieldDescription      Field = "description"
	FieldStatusID         Field = "status_id"
	FieldTypeID           Field = "type_id"
	FieldReleaseID        Field = "release_id"
	FieldAssignedToUserID Field = "assigned_to_user_id"
	FieldPosition         Field = "position"
)

// MutableFields is the recognized update set, in diff order.
var MutableFields = []Field{
	FieldTitle,
	FieldDescription,
	FieldStatusID,
	FieldTypeID,
	FieldReleaseID,
	FieldAssignedToUserID,
	FieldPosition,
}

// Optional holds a patch value that may be absent, explicitly null, or set.
type Optional[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// Set returns a present, non-null optional.
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: v}
}

// Null returns a present optional carrying an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

// Ptr converts the optional to the nullable column representation.
func (o Optional[T]) Ptr() *T {
	if !o.Present || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// FieldError reports a patch field whose JSON value has the wrong shape.
type FieldError struct {
	Field  Field
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TicketPatch is a partial ticket update restricted to MutableFields.
type TicketPatch struct {
	Title            Optional[string]
	Description      Optional[string]
	StatusID         Optional[int64]
	TypeID           Optional[int64]
	ReleaseID        Optional[int64]
	AssignedToUserID Optional[int64]
	Position         Optional[int64]
}

// Empty reports whether no recognized field was supplied.
func (p TicketPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the supplied fields in diff order.
func (p TicketPatch) Fields() []Field {
	present := map[Field]bool{
		FieldTitle:            p.Title.Present,
		FieldDescription:      p.Description.Present,
		FieldStatusID:         p.StatusID.Present,
		FieldTypeID:           p.TypeID.Present,
		FieldReleaseID:        p.ReleaseID.Present,
		FieldAssignedToUserID: p.AssignedToUserID.Present,
		FieldPosition:         p.Position.Present,
	}
	fields := make([]Field, 0, len(MutableFields))
	for _, f := range MutableFields {
		if present[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// ApplyTo writes every supplied field onto t.
func (p TicketPatch) ApplyTo(t *Ticket) {
	if p.Title.Present {
		t.Title = p.Title.Value
	}
	if p.Description.Present {
		t.Description = p.Description.Ptr()
	}
	if p.StatusID.Present {
		t.StatusID = p.StatusID.Ptr()
	}
	if p.TypeID.Present {
		t.TypeID = p.TypeID.Ptr()
	}
	if p.ReleaseID.Present {
		t.ReleaseID = p.ReleaseID.Ptr()
	}
	if p.AssignedToUserID.Present {
		t.AssignedToUserID = p.AssignedToUserID.Ptr()
	}
	if p.Position.Present {
		t.Position = p.Position.Value
	}
}

// UnmarshalJSON decodes a JSON object, keeping only recognized keys.
// Unknown keys are ignored; recognized keys with the wrong type fail.
func (p *TicketPatch) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("patch must be a JSON object")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out TicketPatch
	var err error
	if v, ok := raw[string(FieldTitle)]; ok {
		if out.Title, err = decodeString(FieldTitle, v); err != nil {
			return err
		}
		if out.Title.Null || strings.TrimSpace(out.Title.Value) == "" {
			return &FieldError{Field: FieldTitle, Reason: "must be a non-empty string"}
		}
		out.Title.Value = strings.TrimSpace(out.Title.Value)
	}
	if v, ok := raw[string(FieldDescription)]; ok {
		if out.Description, err = decodeString(FieldDescription, v); err != nil {
			return err
		}
	}
	ints := []struct {
		field Field
		dst   *Optional[int64]
	}{
		{FieldStatusID, &out.StatusID},
		{FieldTypeID, &out.TypeID},
		{FieldReleaseID, &out.ReleaseID},
		{FieldAssignedToUserID, &out.AssignedToUserID},
		{FieldPosition, &out.Position},
	}
	for _, entry := range ints {
		v, ok := raw[string(entry.field)]
		if !ok {
			continue
		}
		if *entry.dst, err = decodeInt(entry.field, v); err != nil {
			return err
		}
	}
	if out.Position.Null {
		return &FieldError{Field: FieldPosition, Reason: "must be an integer"}
	}
	*p = out
	return nil
}

// MarshalJSON emits only the supplied fields, with explicit nulls kept.
func (p TicketPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(MutableFields))
	putString := func(f Field, o Optional[string]) {
		if o.Present {
			out[string(f)] = o.Ptr()
		}
	}
	putInt := func(f Field, o Optional[int64]) {
		if o.Present {
			out[string(f)] = o.Ptr()
		}
	}
	putString(FieldTitle, p.Title)
	putString(FieldDescription, p.Description)
	putInt(FieldStatusID, p.StatusID)
	putInt(FieldTypeID, p.TypeID)
	putInt(FieldReleaseID, p.ReleaseID)
	putInt(FieldAssignedToUserID, p.AssignedToUserID)
	putInt(FieldPosition, p.Position)
	return json.Marshal(out)
}

func decodeString(field Field, raw json.RawMessage) (Optional[string], error) {
	if isNull(raw) {
		return Null[string](), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Optional[string]{}, &FieldError{Field: field, Reason: "must be a string or null"}
	}
	return Set(s), nil
}

func decodeInt(field Field, raw json.RawMessage) (Optional[int64], error) {
	if isNull(raw) {
		return Null[int64](), nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return Optional[int64]{}, &FieldError{Field: field, Reason: "must be an integer or null"}
	}
	return Set(n), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
