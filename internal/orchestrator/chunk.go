package orchestrator

import (
	"context"
	"fmt"

	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
)

// chunkLimit is the workspace's hard cap on children per submission, applied
// at every nesting level.
const chunkLimit = 100

// tableRowLimit reads the configured rows-per-submission cap for tables.
// Values outside (0, chunkLimit] clamp to the workspace child cap.
func tableRowLimit() int {
	limit := common.GetSnapshot().Builder.MaxTableRows
	if limit <= 0 || limit > chunkLimit {
		return chunkLimit
	}
	return limit
}

// chunkNode pairs a block prepared for submission with the children that
// must wait for the block's assigned id before they can be appended.
type chunkNode struct {
	block    *models.Block
	deferred []*chunkNode
}

// planChunks prepares a block tree for upload. Each block carries at most
// chunkLimit inline children; tables are further capped at rowLimit rows per
// submission. The remainder is deferred to follow-up appends against the
// block's created id. Once one child of a parent is deferred, all later
// siblings are too, so document order survives the split.
func planChunks(blocks []*models.Block, rowLimit int) []*chunkNode {
	nodes := make([]*chunkNode, 0, len(blocks))
	for _, b := range blocks {
		nodes = append(nodes, planNode(b, rowLimit))
	}
	return nodes
}

func planNode(b *models.Block, rowLimit int) *chunkNode {
	clone := *b
	clone.Children = nil
	node := &chunkNode{block: &clone}

	limit := chunkLimit
	if b.Type == models.BlockTable && rowLimit > 0 && rowLimit < limit {
		limit = rowLimit
	}

	deferring := false
	for i, child := range b.Children {
		cn := planNode(child, rowLimit)
		// A child needing follow-up appends must surface at the top of its
		// own submission to receive an id, so it is deferred as a whole.
		if !deferring && i < limit && len(cn.deferred) == 0 {
			clone.Children = append(clone.Children, cn.block)
			continue
		}
		deferring = true
		node.deferred = append(node.deferred, cn)
	}
	return node
}

// upload appends planned nodes under parentID in waves of chunkLimit, then
// recurses into deferred subtrees using the ids the workspace assigned.
// Returns the ids assigned to the top-level nodes, in order.
func (s *Service) upload(ctx context.Context, job *models.UploadJob, parentID string, nodes []*chunkNode) ([]string, error) {
	ids := make([]string, 0, len(nodes))
	for start := 0; start < len(nodes); start += chunkLimit {
		if job.Cancelled() {
			return ids, errCancelled
		}
		end := start + chunkLimit
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]

		blocks := make([]*models.Block, len(batch))
		units := 0
		for i, n := range batch {
			blocks[i] = n.block
			units += 1 + n.block.DescendantCount()
		}

		resp, err := s.client.AppendChildren(ctx, parentID, blocks)
		if err != nil {
			return ids, err
		}

		job.Appended += units
		s.publish(job)

		for i := range batch {
			if i < len(resp.Results) {
				ids = append(ids, resp.Results[i].ID)
			}
		}

		for i, n := range batch {
			if len(n.deferred) == 0 {
				continue
			}
			if i >= len(resp.Results) || resp.Results[i].ID == "" {
				return ids, fmt.Errorf("workspace returned no id for block %d of batch; cannot append deferred children", i)
			}
			if _, err := s.upload(ctx, job, resp.Results[i].ID, n.deferred); err != nil {
				return ids, err
			}
		}
	}
	return ids, nil
}
