package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/matiasleandrokruk/crmops/internal/domain/crm"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
)

var accountGetDefinition = operation.Definition{
	Name:        "account.get",
	Description: "Loads an account of the caller's workspace by id.",
	InputSchema: schema(`{"type":"object","required":["accountId"],"properties":{"accountId":{"type":"string"}},"additionalProperties":false}`),
}

type accountGetRequest struct {
	AccountID string `json:"accountId"`
}

func (r accountGetRequest) Validate() error {
	if strings.TrimSpace(r.AccountID) == "" {
		return errors.New("accountId is required")
	}
	return nil
}

type accountGetResponse struct {
	operation.Response
	Account *crm.Account `json:"account"`
}

type accountGet struct {
	accounts AccountStore
}

func (op accountGet) Handle(ctx context.Context, req accountGetRequest, res *accountGetResponse, ec operation.ExecutionContext) (*accountGetResponse, error) {
	workspaceID, err := workspaceOf(ec)
	if err != nil {
		return nil, err
	}

	account, err := op.accounts.Get(ctx, workspaceID, req.AccountID)
	if err != nil {
		return nil, errors.Wrap(err, "load account")
	}
	res.Account = account
	return res, nil
}

var accountCreateDefinition = operation.Definition{
	Name:        "account.create",
	Description: "Creates an account in the caller's workspace. ownerId defaults to the calling user.",
	InputSchema: schema(`{"type":"object","required":["name"],"properties":{"name":{"type":"string"},"domain":{"type":"string"},"industry":{"type":"string"},"ownerId":{"type":"string"}},"additionalProperties":false}`),
}

type accountCreateRequest struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Industry string `json:"industry"`
	OwnerID  string `json:"ownerId"`
}

func (r accountCreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type accountCreateResponse struct {
	operation.Response
	AccountID string     `json:"accountId"`
	CreatedAt *time.Time `json:"createdAt"`
}

type accountCreate struct {
	accounts AccountStore
}

func (op accountCreate) Handle(ctx context.Context, req accountCreateRequest, res *accountCreateResponse, ec operation.ExecutionContext) (*accountCreateResponse, error) {
	workspaceID, err := workspaceOf(ec)
	if err != nil {
		return nil, err
	}

	ownerID := firstNonEmpty(req.OwnerID, ec.UserID)
	if ownerID == "" {
		return nil, errors.New("ownerId is required when the caller is anonymous")
	}

	account, err := op.accounts.Create(ctx, crm.CreateAccountInput{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Domain:      req.Domain,
		Industry:    req.Industry,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create account")
	}

	res.AccountID = account.ID
	res.CreatedAt = &account.CreatedAt
	return res, nil
}
