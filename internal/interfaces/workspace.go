package interfaces

import (
	"context"

	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/workspace"
)

// WorkspaceAPI is the surface of the workspace client used by the
// orchestrator and handlers. Tests substitute fakes behind this interface.
type WorkspaceAPI interface {
	CreatePage(ctx context.Context, req *workspace.CreatePageRequest) (*workspace.Page, error)
	AppendChildren(ctx context.Context, parentID string, children []*models.Block) (*workspace.AppendChildrenResponse, error)
	UpdateBlock(ctx context.Context, blockID string, payload *models.Block) error
	DeleteBlock(ctx context.Context, blockID string) error
	ListChildren(ctx context.Context, parentID, cursor string) (*workspace.ListChildrenResponse, error)
	RetrievePage(ctx context.Context, pageID string) (*workspace.Page, error)
	RetrieveDatabase(ctx context.Context, databaseID string) (*workspace.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, req *workspace.QueryRequest) (*workspace.QueryResponse, error)
	UpdatePageProperties(ctx context.Context, pageID string, props map[string]interface{}) error
}

// ImageUploader re-hosts an image and returns its external URL. The default
// implementation returns the original reference unchanged. Implementations
// return ErrImageUploadFailed to degrade the image to a link placeholder.
type ImageUploader interface {
	Upload(ctx context.Context, bytesOrURL string) (string, error)
}

// ProgressSink consumes job progress events (long-poll, SSE, or WebSocket)
type ProgressSink interface {
	Publish(event models.ProgressEvent)
}
