package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Account represents a customer organization.
type Account struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Domain      *string   `json:"domain,omitempty"`
	Industry    *string   `json:"industry,omitempty"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateAccountInput defines required + optional fields for account creation.
type CreateAccountInput struct {
	WorkspaceID string
	Name        string
	Domain      string
	Industry    string
	OwnerID     string
}

// AccountService provides account operations scoped to a workspace.
type AccountService struct {
	db *sql.DB
}

// NewAccountService creates an AccountService instance.
func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

// Create inserts a new account and returns it as stored.
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*Account, error) {
	if strings.TrimSpace(input.WorkspaceID) == "" || strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.OwnerID) == "" {
		return nil, fmt.Errorf("%w: workspace, name and owner are required", ErrInvalidInput)
	}

	id := newID()
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (id, workspace_id, name, domain, industry, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.WorkspaceID, strings.TrimSpace(input.Name), nullString(input.Domain), nullString(input.Industry),
		input.OwnerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return s.Get(ctx, input.WorkspaceID, id)
}

// Get retrieves an account by ID within the workspace.
func (s *AccountService) Get(ctx context.Context, workspaceID, accountID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, domain, industry, owner_id, created_at, updated_at
		FROM account
		WHERE workspace_id = ? AND id = ?
	`, workspaceID, accountID)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		a                    Account
		domain, industry     sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.WorkspaceID, &a.Name, &domain, &industry, &a.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Domain = stringPtr(domain)
	a.Industry = stringPtr(industry)
	a.CreatedAt = parseRFC3339Time(createdAt)
	a.UpdatedAt = parseRFC3339Time(updatedAt)
	return &a, nil
}
