// Package client talks to the kanban HTTP API and keeps a local board
// snapshot that tools such as kanbanctl render from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/kanban-service/internal/api/dto"
	"github.com/spec-kit/kanban-service/internal/domain"
)

// API is the server surface the Store depends on.
type API interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, draft Draft) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error
	ListStatuses(ctx context.Context) ([]domain.Status, error)
	ListTypes(ctx context.Context) ([]domain.Type, error)
	ListReleases(ctx context.Context) ([]domain.Release, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListAuditLog(ctx context.Context, ticketID int64) ([]domain.AuditLogEntry, error)
}

// Draft is a ticket that has not been created yet.
type Draft = dto.CreateTicketRequest

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kanban api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kanban api error (%d): %s", e.StatusCode, e.Message)
}

// Client is an API implementation over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets baseURL, which includes the API prefix
// (for example http://localhost:8080/api).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithTransport swaps the underlying round tripper.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.http.Transport = rt
	return c
}

func (c *Client) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := c.doJSON(ctx, http.MethodGet, "/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.doJSON(ctx, http.MethodGet, ticketPath(id), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) CreateTicket(ctx context.Context, draft Draft) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.doJSON(ctx, http.MethodPost, "/tickets", draft, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) UpdateTicket(ctx context.Context, id int64, patch domain.TicketPatch) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.doJSON(ctx, http.MethodPut, ticketPath(id), patch, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) DeleteTicket(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, ticketPath(id), nil, nil)
}

func (c *Client) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	var rows []domain.Status
	err := c.doJSON(ctx, http.MethodGet, "/metadata/"+string(domain.KindStatuses), nil, &rows)
	return rows, err
}

func (c *Client) ListTypes(ctx context.Context) ([]domain.Type, error) {
	var rows []domain.Type
	err := c.doJSON(ctx, http.MethodGet, "/metadata/"+string(domain.KindTypes), nil, &rows)
	return rows, err
}

func (c *Client) ListReleases(ctx context.Context) ([]domain.Release, error) {
	var rows []domain.Release
	err := c.doJSON(ctx, http.MethodGet, "/metadata/"+string(domain.KindReleases), nil, &rows)
	return rows, err
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []domain.User
	err := c.doJSON(ctx, http.MethodGet, "/metadata/"+string(domain.KindUsers), nil, &rows)
	return rows, err
}

// CreateMetadata posts a taxonomy row and decodes the created row into out.
func (c *Client) CreateMetadata(ctx context.Context, kind domain.TaxonomyKind, req dto.CreateMetadataRequest, out any) error {
	return c.doJSON(ctx, http.MethodPost, "/metadata/"+string(kind), req, out)
}

func (c *Client) ListAuditLog(ctx context.Context, ticketID int64) ([]domain.AuditLogEntry, error) {
	var entries []domain.AuditLogEntry
	if err := c.doJSON(ctx, http.MethodGet, "/audit-logs/"+strconv.FormatInt(ticketID, 10), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func ticketPath(id int64) string {
	return "/tickets/" + strconv.FormatInt(id, 10)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeHTTPError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func decodeHTTPError(status int, data []byte) error {
	httpErr := &HTTPError{StatusCode: status, Message: strings.TrimSpace(string(data))}
	var envelope dto.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		httpErr.Code = envelope.Error.Code
		httpErr.Message = envelope.Error.Message
	}
	return httpErr
}
