package models

// BlockType identifies the kind of a workspace block
type BlockType string

const (
	BlockParagraph    BlockType = "paragraph"
	BlockHeading1     BlockType = "heading_1"
	BlockHeading2     BlockType = "heading_2"
	BlockHeading3     BlockType = "heading_3"
	BlockBulletedItem BlockType = "bulleted_list_item"
	BlockNumberedItem BlockType = "numbered_list_item"
	BlockToDo         BlockType = "to_do"
	BlockToggle       BlockType = "toggle"
	BlockQuote        BlockType = "quote"
	BlockCallout      BlockType = "callout"
	BlockCode         BlockType = "code"
	BlockImage        BlockType = "image"
	BlockVideo        BlockType = "video"
	BlockDivider      BlockType = "divider"
	BlockTable        BlockType = "table"
	BlockTableRow     BlockType = "table_row"
	BlockBookmark     BlockType = "bookmark"
	BlockChildPage    BlockType = "child_page"
	BlockSynced       BlockType = "synced_block"
	BlockLinkToPage   BlockType = "link_to_page"
)

// Block is the workspace's atomic content unit. Exactly one payload field
// matching Type is populated; the rest stay nil on the wire. Children is
// carried alongside the payload and submitted together when the schema allows.
type Block struct {
	ID   string    `json:"id,omitempty"` // Assigned by the workspace on creation
	Type BlockType `json:"type"`

	// HasChildren is reported by the workspace on listings; nested children
	// are fetched with a separate listing call.
	HasChildren bool `json:"has_children,omitempty"`

	Paragraph    *TextPayload     `json:"paragraph,omitempty"`
	Heading1     *TextPayload     `json:"heading_1,omitempty"`
	Heading2     *TextPayload     `json:"heading_2,omitempty"`
	Heading3     *TextPayload     `json:"heading_3,omitempty"`
	BulletedItem *TextPayload     `json:"bulleted_list_item,omitempty"`
	NumberedItem *TextPayload     `json:"numbered_list_item,omitempty"`
	ToDo         *ToDoPayload     `json:"to_do,omitempty"`
	Toggle       *TextPayload     `json:"toggle,omitempty"`
	Quote        *TextPayload     `json:"quote,omitempty"`
	Callout      *CalloutPayload  `json:"callout,omitempty"`
	Code         *CodePayload     `json:"code,omitempty"`
	Image        *FilePayload     `json:"image,omitempty"`
	Video        *FilePayload     `json:"video,omitempty"`
	Divider      *EmptyPayload    `json:"divider,omitempty"`
	Table        *TablePayload    `json:"table,omitempty"`
	TableRow     *TableRowPayload `json:"table_row,omitempty"`
	Bookmark     *BookmarkPayload `json:"bookmark,omitempty"`
	ChildPage    *ChildPayload    `json:"child_page,omitempty"`
	Synced       *SyncedPayload   `json:"synced_block,omitempty"`
	LinkToPage   *LinkPayload     `json:"link_to_page,omitempty"`

	Children []*Block `json:"children,omitempty"`
}

// TextPayload carries rich-text runs for text-bearing block kinds
type TextPayload struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
}

// ToDoPayload carries a checkbox state alongside its runs
type ToDoPayload struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// CalloutPayload carries runs, an emoji icon, and a color tag
type CalloutPayload struct {
	RichText []RichText `json:"rich_text"`
	Icon     string     `json:"icon,omitempty"`
	Color    string     `json:"color,omitempty"`
}

// CodePayload carries code text and its language
type CodePayload struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language"`
	Caption  []RichText `json:"caption,omitempty"`
}

// FilePayload references an external file by URL
type FilePayload struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

// EmptyPayload marks block kinds with no content (divider)
type EmptyPayload struct{}

// TablePayload describes the table shape; rows arrive as table_row children
type TablePayload struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// TableRowPayload holds one rich-run list per column
type TableRowPayload struct {
	Cells [][]RichText `json:"cells"`
}

// BookmarkPayload references an external URL
type BookmarkPayload struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

// ChildPayload names a child page
type ChildPayload struct {
	Title string `json:"title"`
}

// SyncedPayload references an original synced block, or none for an original
type SyncedPayload struct {
	SyncedFrom string `json:"synced_from,omitempty"`
}

// LinkPayload points at another page
type LinkPayload struct {
	PageID string `json:"page_id"`
}

// leafKinds are block kinds the workspace schema forbids children under
var leafKinds = map[BlockType]bool{
	BlockCode:       true,
	BlockImage:      true,
	BlockVideo:      true,
	BlockDivider:    true,
	BlockTableRow:   true,
	BlockBookmark:   true,
	BlockChildPage:  true,
	BlockLinkToPage: true,
}

// AllowsChildren reports whether the workspace schema permits children under
// a block of the given kind.
func AllowsChildren(t BlockType) bool {
	return !leafKinds[t]
}

// RichRuns returns the primary rich-text runs of the block, or nil for kinds
// without a text payload.
func (b *Block) RichRuns() []RichText {
	switch b.Type {
	case BlockParagraph:
		return payloadRuns(b.Paragraph)
	case BlockHeading1:
		return payloadRuns(b.Heading1)
	case BlockHeading2:
		return payloadRuns(b.Heading2)
	case BlockHeading3:
		return payloadRuns(b.Heading3)
	case BlockBulletedItem:
		return payloadRuns(b.BulletedItem)
	case BlockNumberedItem:
		return payloadRuns(b.NumberedItem)
	case BlockToggle:
		return payloadRuns(b.Toggle)
	case BlockQuote:
		return payloadRuns(b.Quote)
	case BlockToDo:
		if b.ToDo != nil {
			return b.ToDo.RichText
		}
	case BlockCallout:
		if b.Callout != nil {
			return b.Callout.RichText
		}
	case BlockCode:
		if b.Code != nil {
			return b.Code.RichText
		}
	}
	return nil
}

// SetRichRuns replaces the primary rich-text runs of the block
func (b *Block) SetRichRuns(runs []RichText) {
	switch b.Type {
	case BlockParagraph:
		setPayloadRuns(b.Paragraph, runs)
	case BlockHeading1:
		setPayloadRuns(b.Heading1, runs)
	case BlockHeading2:
		setPayloadRuns(b.Heading2, runs)
	case BlockHeading3:
		setPayloadRuns(b.Heading3, runs)
	case BlockBulletedItem:
		setPayloadRuns(b.BulletedItem, runs)
	case BlockNumberedItem:
		setPayloadRuns(b.NumberedItem, runs)
	case BlockToggle:
		setPayloadRuns(b.Toggle, runs)
	case BlockQuote:
		setPayloadRuns(b.Quote, runs)
	case BlockToDo:
		if b.ToDo != nil {
			b.ToDo.RichText = runs
		}
	case BlockCallout:
		if b.Callout != nil {
			b.Callout.RichText = runs
		}
	case BlockCode:
		if b.Code != nil {
			b.Code.RichText = runs
		}
	}
}

// PlainText concatenates the block's primary runs into plain text
func (b *Block) PlainText() string {
	var out string
	for _, run := range b.RichRuns() {
		out += run.Content
	}
	return out
}

// DescendantCount returns the number of blocks in the subtree rooted at b,
// excluding b itself.
func (b *Block) DescendantCount() int {
	count := 0
	for _, child := range b.Children {
		count += 1 + child.DescendantCount()
	}
	return count
}

func payloadRuns(p *TextPayload) []RichText {
	if p == nil {
		return nil
	}
	return p.RichText
}

func setPayloadRuns(p *TextPayload, runs []RichText) {
	if p != nil {
		p.RichText = runs
	}
}
