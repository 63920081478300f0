package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/kanban-service/internal/domain"
)

func TestSearch(t *testing.T) {
	api := newFakeAPI()
	store := newLoadedStore(t, api)
	ctx := context.Background()

	login, _ := store.AddTicket(ctx, Draft{Title: "Fix LOGIN page", TypeID: ptr(int64(1)), StatusID: ptr(int64(2))})
	export, _ := store.AddTicket(ctx, Draft{Title: "CSV export", Description: ptr("Users want a login audit export"), TypeID: ptr(int64(2))})
	release, _ := store.AddTicket(ctx, Draft{Title: "Ship it", ReleaseID: ptr(int64(1))})
	_, err := store.UpdateTicket(ctx, release.ID, domainPatchAssign(2))
	assert.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{name: "substring title and description", query: "login", want: []int64{login.ID, export.ID}},
		{name: "type command", query: "/type feat", want: []int64{export.ID}},
		{name: "status command", query: "/status progress", want: []int64{login.ID}},
		{name: "release command", query: "/release v1", want: []int64{release.ID}},
		{name: "assigned command", query: "/assigned bob", want: []int64{release.ID}},
		{name: "no taxonomy match", query: "/type epic", want: []int64{}},
		{name: "bare type lists all", query: "/type", want: []int64{login.ID, export.ID, release.ID}},
		{name: "bare status matches first status", query: "/status", want: []int64{}},
		{name: "bare assigned matches first user", query: "/assigned", want: []int64{}},
		{name: "bare release matches first release", query: "/release", want: []int64{release.ID}},
		{name: "unknown command is text", query: "/nope", want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(store.Search(tt.query)))
		})
	}
}

func domainPatchAssign(userID int64) domain.TicketPatch {
	return domain.TicketPatch{AssignedToUserID: domain.Set(userID)}
}
