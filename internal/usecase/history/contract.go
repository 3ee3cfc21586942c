package history

import (
	"context"

	"github.com/kailas-cloud/hybridsearch/internal/domain"
)

// store is the consumer interface for history persistence (ISP).
type store interface {
	Append(ctx context.Context, rec domain.HistoryRecord) error
}
