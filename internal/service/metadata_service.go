package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/events"
	"github.com/spec-kit/kanban-service/internal/repository"
	"github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

// MetadataService lists and creates taxonomy rows. Each kind dispatches to its
// own typed repository method; raw kind strings never reach a query.
type MetadataService struct {
	metadata   repository.MetadataRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MetadataCreateInput carries the fields accepted for any kind. Position
// applies to statuses, Email and AvatarURL to users; the rest ignore them.
type MetadataCreateInput struct {
	Name      string
	Position  *int64
	Email     *string
	AvatarURL *string
}

func NewMetadataService(metadata repository.MetadataRepository, dispatcher events.Dispatcher, logger *zap.Logger) *MetadataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataService{metadata: metadata, dispatcher: dispatcher, logger: logger}
}

// ParseKind validates a caller-supplied kind against the allow-list.
func ParseKind(raw string) (domain.TaxonomyKind, error) {
	kind, ok := domain.ParseTaxonomyKind(raw)
	if !ok {
		return "", errorutil.NewValidationError("unknown metadata kind", map[string]any{
			"kind":    raw,
			"allowed": domain.TaxonomyKinds,
		})
	}
	return kind, nil
}

// List returns every row of kind as a typed slice.
func (s *MetadataService) List(ctx context.Context, kind domain.TaxonomyKind) (any, error) {
	var (
		rows any
		err  error
	)
	switch kind {
	case domain.KindStatuses:
		rows, err = s.metadata.ListStatuses(ctx)
	case domain.KindTypes:
		rows, err = s.metadata.ListTypes(ctx)
	case domain.KindReleases:
		rows, err = s.metadata.ListReleases(ctx)
	case domain.KindUsers:
		rows, err = s.metadata.ListUsers(ctx)
	default:
		return nil, unknownKind(kind)
	}
	if err != nil {
		return nil, mapRepositoryError(err, string(kind))
	}
	return rows, nil
}

// Create inserts a row of kind. Name is required for every kind.
func (s *MetadataService) Create(ctx context.Context, kind domain.TaxonomyKind, input MetadataCreateInput) (any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errorutil.NewValidationError("name is required", map[string]any{"field": "name"})
	}

	var (
		created any
		id      int64
	)
	switch kind {
	case domain.KindStatuses:
		position, err := s.statusPosition(ctx, input.Position)
		if err != nil {
			return nil, err
		}
		status, err := s.metadata.CreateStatus(ctx, domain.NewStatus{Name: name, Position: position})
		if err != nil {
			return nil, mapRepositoryError(err, string(kind))
		}
		created, id = status, status.ID
	case domain.KindTypes:
		typ, err := s.metadata.CreateType(ctx, name)
		if err != nil {
			return nil, mapRepositoryError(err, string(kind))
		}
		created, id = typ, typ.ID
	case domain.KindReleases:
		release, err := s.metadata.CreateRelease(ctx, name)
		if err != nil {
			return nil, mapRepositoryError(err, string(kind))
		}
		created, id = release, release.ID
	case domain.KindUsers:
		user, err := s.metadata.CreateUser(ctx, domain.NewUser{
			Name:      name,
			Email:     blankToNil(input.Email),
			AvatarURL: blankToNil(input.AvatarURL),
		})
		if err != nil {
			return nil, mapRepositoryError(err, string(kind))
		}
		created, id = user, user.ID
	default:
		return nil, unknownKind(kind)
	}

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventMetadataCreated, 0, events.MetadataCreatedPayload{Kind: kind, ID: id, Name: name})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event subscriber failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return created, nil
}

// statusPosition appends new statuses after the existing columns unless a
// position was given.
func (s *MetadataService) statusPosition(ctx context.Context, requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	statuses, err := s.metadata.ListStatuses(ctx)
	if err != nil {
		return 0, mapRepositoryError(err, string(domain.KindStatuses))
	}
	var next int64
	for _, st := range statuses {
		if st.Position >= next {
			next = st.Position + 1
		}
	}
	return next, nil
}

func unknownKind(kind domain.TaxonomyKind) error {
	return errorutil.NewValidationError("unknown metadata kind", map[string]any{"kind": string(kind)})
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
