package gmail

import "context"

// Client is the narrow Gmail surface required by the warming filter.
type Client interface {
	List(ctx context.Context, q Query, pageToken string, pageSize int64) (ListPage, error)
	Get(ctx context.Context, id MessageID) (MessageDetail, error)
	BatchModify(ctx context.Context, ids []MessageID, ops ModifyOps) error
	ListLabels(ctx context.Context) (map[string]LabelID, error)
	CreateLabel(ctx context.Context, name string) (LabelID, error)
}
