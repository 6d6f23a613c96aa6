package enums

// OutboxDLQErrorReason records why the publisher gave up on a saga event.
type OutboxDLQErrorReason string

const (
	// Pub/Sub kept failing until the attempt budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// The row can never be published as stored: bad envelope, unknown type.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// No Pub/Sub topic is configured for the event's destination.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnroutable:
		return true
	}
	return false
}

// Replayable reports whether copying the row back into the outbox could
// succeed without a code or config change.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts
}
