package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"RiskEngine/internal/account"
)

// AccountUpdate replaces one user's full position set.
type AccountUpdate struct {
	UserID uuid.UUID
	User   account.User

	Sequence  int64
	Timestamp time.Time
}

func (e *AccountUpdate) IdempotencyKey() string {
	return fmt.Sprintf("account:%s:%d", e.UserID, e.Sequence)
}

func (e *AccountUpdate) EventType() EventType { return EventTypeAccountUpdate }

func (e *AccountUpdate) SourceSequence() int64 { return e.Sequence }
