package collab

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dkeye/Presence/internal/domain"
)

// IdentityFunc produces a fresh ClientID. Called once per Service.
type IdentityFunc func() domain.ClientID

// DefaultIdentity combines the clock's unix millis with a random suffix.
func DefaultIdentity(clock clockwork.Clock) IdentityFunc {
	return func() domain.ClientID {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		return domain.ClientID(fmt.Sprintf("client-%d-%s", clock.Now().UnixMilli(), suffix))
	}
}

// SequentialIdentity yields prefix-1, prefix-2, ... and is safe for
// concurrent use.
func SequentialIdentity(prefix string) IdentityFunc {
	var n atomic.Uint64
	return func() domain.ClientID {
		return domain.ClientID(fmt.Sprintf("%s-%d", prefix, n.Add(1)))
	}
}
