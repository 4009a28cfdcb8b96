// Package scan defines questions that a participant answers while being interviewed.
package scan

import "context"

//go:generate mockgen -typed -package=scan -destination=./mocks.go -source=./interface.go

// Scannable is a data source that can be interviewed.
type Scannable interface {
	// Scan visits entities matching the question and reports every settled
	// answer to handler. The caller completes the handler once Scan returns.
	Scan(ctx context.Context, q Question, handler PruningHandler) error
}

// PruningHandler receives answers of a scan.
type PruningHandler interface {
	OnPrune(ctx context.Context, answer Answer) error
	OnCompletion()
}
