package client

import (
	"strings"

	"github.com/spec-kit/kanban-service/internal/domain"
)

// Search filters the local tickets.
//
// A query starting with /type, /status, /release or /assigned picks the first
// taxonomy row whose name contains the argument and returns the tickets
// referencing it. A bare /type returns every ticket; the other bare commands
// match the first row of their taxonomy. Any other query is a
// case-insensitive substring match on title and description.
func (s *Store) Search(query string) []domain.Ticket {
	tickets := s.Tickets()
	lower := strings.ToLower(strings.TrimSpace(query))

	if strings.HasPrefix(lower, "/") {
		command, arg, _ := strings.Cut(lower, " ")
		arg = strings.TrimSpace(arg)
		if match, ok := s.commandMatcher(command, arg); ok {
			if arg == "" && command == "/type" {
				return tickets
			}
			return filter(tickets, match)
		}
	}

	return filter(tickets, func(t domain.Ticket) bool {
		if strings.Contains(strings.ToLower(t.Title), lower) {
			return true
		}
		return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), lower)
	})
}

// commandMatcher resolves a slash command. ok is false for unknown commands.
func (s *Store) commandMatcher(command, arg string) (func(domain.Ticket) bool, bool) {
	var (
		ids   []int64
		names []string
		field func(domain.Ticket) *int64
	)
	switch command {
	case "/type":
		for _, t := range s.Types() {
			ids, names = append(ids, t.ID), append(names, t.Name)
		}
		field = func(t domain.Ticket) *int64 { return t.TypeID }
	case "/status":
		for _, st := range s.Statuses() {
			ids, names = append(ids, st.ID), append(names, st.Name)
		}
		field = func(t domain.Ticket) *int64 { return t.StatusID }
	case "/release":
		for _, r := range s.Releases() {
			ids, names = append(ids, r.ID), append(names, r.Name)
		}
		field = func(t domain.Ticket) *int64 { return t.ReleaseID }
	case "/assigned":
		for _, u := range s.Users() {
			ids, names = append(ids, u.ID), append(names, u.Name)
		}
		field = func(t domain.Ticket) *int64 { return t.AssignedToUserID }
	default:
		return nil, false
	}

	for i, name := range names {
		if strings.Contains(strings.ToLower(name), arg) {
			want := ids[i]
			return func(t domain.Ticket) bool {
				v := field(t)
				return v != nil && *v == want
			}, true
		}
	}
	return func(domain.Ticket) bool { return false }, true
}

func filter(tickets []domain.Ticket, keep func(domain.Ticket) bool) []domain.Ticket {
	out := []domain.Ticket{}
	for _, t := range tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
