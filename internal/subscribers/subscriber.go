package subscribers

import (
	"context"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

// Subscriber receives every normalized response, regardless of user, for
// delivery outside the process.
type Subscriber interface {
	Name() string
	Handle(context.Context, types.NormalizedResponse) error
}
