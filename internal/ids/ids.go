// Package ids generates the identifiers the mailbox protocol uses:
// 32-character hex pipeline and correlation ids (New), and short nanoid
// tags (Short) for local-only bookkeeping where a full UUID would be
// overkill. No code in this module calls Short.
package ids

import (
	"encoding/hex"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// New returns a fresh 32-character lowercase hex identifier with no
// dashes, suitable for a pipeline id or a correlation id.
func New() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Short returns a short random identifier for local bookkeeping that is
// never persisted to the store.
func Short() string {
	return gonanoid.Must(8)
}
