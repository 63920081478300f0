package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/kanban-service/internal/domain"
)

// Grouping selects which taxonomy the board buckets tickets by.
type Grouping string

const (
	GroupByStatus  Grouping = "status"
	GroupByType    Grouping = "type"
	GroupByRelease Grouping = "release"
)

// ParseGrouping accepts status, type or release, case-insensitively.
func ParseGrouping(raw string) (Grouping, error) {
	switch g := Grouping(strings.ToLower(strings.TrimSpace(raw))); g {
	case GroupByStatus, GroupByType, GroupByRelease:
		return g, nil
	default:
		return "", fmt.Errorf("unknown grouping %q: want status, type or release", raw)
	}
}

// Column is one board lane.
type Column struct {
	ID      int64
	Name    string
	Tickets []domain.Ticket
}

// Board is the grouped view of the local tickets. Tickets whose group value
// is null or matches no column are collected in Unassigned.
type Board struct {
	Grouping   Grouping
	Columns    []Column
	Unassigned []domain.Ticket
}

// Board groups the local tickets by g, keeping server order within a column.
func (s *Store) Board(g Grouping) Board {
	board := Board{Grouping: g}
	index := map[int64]int{}
	for _, col := range s.columns(g) {
		index[col.ID] = len(board.Columns)
		board.Columns = append(board.Columns, col)
	}

	for _, t := range s.Tickets() {
		key := groupValue(t, g)
		if key == nil {
			board.Unassigned = append(board.Unassigned, t)
			continue
		}
		i, ok := index[*key]
		if !ok {
			board.Unassigned = append(board.Unassigned, t)
			continue
		}
		board.Columns[i].Tickets = append(board.Columns[i].Tickets, t)
	}
	return board
}

// MoveToColumn reassigns the ticket to the column's taxonomy id.
func (s *Store) MoveToColumn(ctx context.Context, id int64, g Grouping, columnID int64) (*domain.Ticket, error) {
	patch, err := groupPatch(g, columnID)
	if err != nil {
		return nil, err
	}
	return s.UpdateTicket(ctx, id, patch)
}

// MoveOntoTicket drops the ticket onto another ticket: it joins the target's
// column. Dropping onto an unassigned target changes nothing and returns the
// local copy.
func (s *Store) MoveOntoTicket(ctx context.Context, id int64, g Grouping, targetID int64) (*domain.Ticket, error) {
	target, ok := s.Ticket(targetID)
	if !ok {
		return nil, fmt.Errorf("ticket %d is not on the board", targetID)
	}
	dest := groupValue(target, g)
	if dest == nil {
		current, ok := s.Ticket(id)
		if !ok {
			return nil, fmt.Errorf("ticket %d is not on the board", id)
		}
		return &current, nil
	}
	return s.MoveToColumn(ctx, id, g, *dest)
}

func (s *Store) columns(g Grouping) []Column {
	var cols []Column
	switch g {
	case GroupByStatus:
		for _, st := range s.Statuses() {
			cols = append(cols, Column{ID: st.ID, Name: st.Name})
		}
	case GroupByType:
		for _, t := range s.Types() {
			cols = append(cols, Column{ID: t.ID, Name: t.Name})
		}
	case GroupByRelease:
		for _, r := range s.Releases() {
			cols = append(cols, Column{ID: r.ID, Name: r.Name})
		}
	}
	return cols
}

func groupValue(t domain.Ticket, g Grouping) *int64 {
	switch g {
	case GroupByStatus:
		return t.StatusID
	case GroupByType:
		return t.TypeID
	case GroupByRelease:
		return t.ReleaseID
	default:
		return nil
	}
}

func groupPatch(g Grouping, columnID int64) (domain.TicketPatch, error) {
	var patch domain.TicketPatch
	switch g {
	case GroupByStatus:
		patch.StatusID = domain.Set(columnID)
	case GroupByType:
		patch.TypeID = domain.Set(columnID)
	case GroupByRelease:
		patch.ReleaseID = domain.Set(columnID)
	default:
		return patch, fmt.Errorf("unknown grouping %q", g)
	}
	return patch, nil
}
