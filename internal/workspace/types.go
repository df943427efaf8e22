package workspace

import (
	"encoding/json"

	"github.com/ternarybob/scriba/internal/models"
)

// Page is the workspace's page object as returned by the API
type Page struct {
	ID         string                     `json:"id"`
	URL        string                     `json:"url,omitempty"`
	CreatedAt  string                     `json:"created_time,omitempty"`
	Archived   bool                       `json:"archived,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
	ParentID   string                     `json:"parent_id,omitempty"`
}

// CreatePageRequest creates a page inside a database with initial children
type CreatePageRequest struct {
	Parent     Parent                 `json:"parent"`
	Properties map[string]interface{} `json:"properties"`
	Children   []*models.Block        `json:"children,omitempty"`
	Icon       string                 `json:"icon,omitempty"`
	Cover      string                 `json:"cover,omitempty"`
}

// Parent identifies where a page is created
type Parent struct {
	Type       string `json:"type"` // "database_id" or "page_id"
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// AppendChildrenRequest appends blocks under a parent block or page
type AppendChildrenRequest struct {
	Children []*models.Block `json:"children"`
}

// AppendChildrenResponse returns the created blocks with assigned ids
type AppendChildrenResponse struct {
	Results []*models.Block `json:"results"`
}

// ListChildrenResponse is one page of a block-children listing
type ListChildrenResponse struct {
	Results    []*models.Block `json:"results"`
	HasMore    bool            `json:"has_more"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Database is the workspace's database schema snapshot
type Database struct {
	ID         string                     `json:"id"`
	Title      string                     `json:"title,omitempty"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// QueryRequest is a proxied database query
type QueryRequest struct {
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
	PageSize    int             `json:"page_size,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
}

// QueryResponse is one page of database query results
type QueryResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// apiErrorBody is the workspace's error response shape
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
