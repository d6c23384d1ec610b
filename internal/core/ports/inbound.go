package ports

import "context"

// SubmissionProcessor is the inbound contract for asynchronous submission
// processing. The trigger is fire-and-forget: callers observe no result.
type SubmissionProcessor interface {
	ProcessByID(ctx context.Context, submissionID string) error
}
