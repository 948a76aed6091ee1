package builtin

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
)

var doubleDefinition = operation.Definition{
	Name:        "math.double",
	Description: "Returns twice the given integer value.",
	InputSchema: schema(`{"type":"object","required":["value"],"properties":{"value":{"type":"integer"}},"additionalProperties":false}`),
}

type doubleRequest struct {
	Value int64 `json:"value"`
}

type doubleResponse struct {
	operation.Response
	Result int64 `json:"result"`
}

var errValueOutOfRange = errors.New("value is out of range: doubling it overflows int64")

type double struct{}

func (double) Handle(_ context.Context, req doubleRequest, res *doubleResponse, _ operation.ExecutionContext) (*doubleResponse, error) {
	if req.Value > math.MaxInt64/2 || req.Value < math.MinInt64/2 {
		return nil, errors.WithStack(errValueOutOfRange)
	}
	res.Result = req.Value * 2
	return res, nil
}
