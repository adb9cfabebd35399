package audit

import "context"

// Sink appends audit events. Implementations never update or delete.
type Sink interface {
	Record(ctx context.Context, e *Event) error
}
