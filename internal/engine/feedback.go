package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/lonkyzooner/thunderfire-sub002/internal/audit"
	"github.com/lonkyzooner/thunderfire-sub002/internal/faults"
	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

const (
	minRating = 1
	maxRating = 5
)

var ratingPattern = regexp.MustCompile(`(?i)^\s*rate\s+(-?\d+)\b`)

// parseRating reports whether content is a feedback command and the rating
// it carries. An out-of-range rating is still a feedback command.
func parseRating(content string) (int, bool) {
	m := ratingPattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// Too many digits to be a valid rating either way.
		return maxRating + 1, true
	}
	return n, true
}

func (e *Engine) handleFeedback(ctx context.Context, ev types.InputEvent, rating int) types.NormalizedResponse {
	if rating < minRating || rating > maxRating {
		err := faults.Validation("engine.feedback", fmt.Sprintf("rating %d out of range", rating))
		return e.failure(ev, types.ResponseText, err, "Please provide a rating between 1 and 5.")
	}

	e.logAudit(ctx, e.logger, audit.Entry{
		EventType: audit.EventFeedback,
		TenantID:  ev.TenantID,
		UserID:    ev.UserID,
		Payload:   map[string]any{"rating": rating, "event_id": ev.EventID},
	})
	content := fmt.Sprintf("Thank you for your feedback! You rated this interaction %d out of 5.", rating)
	return e.respond(ev, types.ResponseText, content, map[string]any{"rating": rating})
}
