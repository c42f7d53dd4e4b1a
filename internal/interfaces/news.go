package interfaces

import "context"

// HeadlineSource supplies recent market headlines for the oracle's context.
// Optional collaborator; a nil source means cycles run without headlines.
type HeadlineSource interface {
	Headlines(ctx context.Context) ([]string, error)
}
