package interview

import (
	"context"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/scan"
)

//go:generate mockgen -typed -package=interview -destination=./mocks.go -source=./interface.go

// VersionStore is the local side of an interview.
type VersionStore interface {
	InitialQuestion(ctx context.Context, endpoint string) (scan.Question, error)
	ContinueInterview(
		ctx context.Context,
		endpoint string,
		q scan.Question,
		answers []scan.Answer,
	) ([]scan.Question, types.EntityDifferences, error)
}
