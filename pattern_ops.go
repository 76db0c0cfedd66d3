package memcore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/memcore/internal/store"
)

// PatternTemplate is the public view of a registered text pattern.
type PatternTemplate struct {
	ID           string
	Name         string
	Pattern      string
	Slots        string
	Priority     int
	UseCount     int64
	SuccessCount int64
}

// RegisterPattern stores a new named pattern template.
func (e *Engine) RegisterPattern(ctx context.Context, name, pattern, slots string, priority int) (*PatternTemplate, error) {
	p := &store.PatternTemplate{
		ID: uuid.NewString(), Name: name, Pattern: pattern, Slots: slots, Priority: priority, CreatedAt: time.Now(),
	}
	if err := e.store.RegisterPattern(ctx, p); err != nil {
		return nil, err
	}
	return &PatternTemplate{ID: p.ID, Name: p.Name, Pattern: p.Pattern, Slots: p.Slots, Priority: p.Priority}, nil
}

// RecordPatternUse records one use of a pattern template, succeeded or not,
// feeding the rolling success_rate the auto-prune sweep reads.
func (e *Engine) RecordPatternUse(ctx context.Context, patternID string, succeeded bool) error {
	return e.store.RecordPatternUse(ctx, patternID, succeeded)
}
