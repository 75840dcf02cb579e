package gql

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"

	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
)

// Insert creates a row. The id and timestamps are generated by the database.
func (c *Client) Insert(ctx context.Context, item domain.NewItem) error {
	req := graphql.NewRequest(`
		mutation($objects: [itemsInsertInput!]!) {
			insertIntoitemsCollection(objects: $objects) {
				affectedCount
			}
		}
	`)
	req.Var("objects", []map[string]interface{}{{
		"name":          item.Name,
		"state":         string(item.State),
		"pinned":        item.Pinned,
		"created_order": item.CreatedOrder,
	}})

	var resp struct {
		InsertIntoItemsCollection struct {
			AffectedCount int `json:"affectedCount"`
		} `json:"insertIntoitemsCollection"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Update applies a partial update to one row.
func (c *Client) Update(ctx context.Context, id string, f remote.Fields) error {
	return c.update(ctx, map[string]interface{}{"eq": id}, 1, f)
}

// UpdateMany applies the same partial update to every row in ids.
func (c *Client) UpdateMany(ctx context.Context, ids []string, f remote.Fields) error {
	if len(ids) == 0 {
		return nil
	}
	return c.update(ctx, map[string]interface{}{"in": ids}, len(ids), f)
}

func (c *Client) update(ctx context.Context, idFilter map[string]interface{}, atMost int, f remote.Fields) error {
	set := f.Columns()
	if len(set) == 0 {
		return nil
	}

	req := graphql.NewRequest(`
		mutation($set: itemsUpdateInput!, $filter: itemsFilter, $atMost: Int!) {
			updateitemsCollection(set: $set, filter: $filter, atMost: $atMost) {
				affectedCount
			}
		}
	`)
	req.Var("set", set)
	req.Var("filter", map[string]interface{}{"id": idFilter})
	req.Var("atMost", atMost)

	var resp struct {
		UpdateItemsCollection struct {
			AffectedCount int `json:"affectedCount"`
		} `json:"updateitemsCollection"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to update items: %w", err)
	}

	// Rows deleted by another client simply drop out on the next fetch
	if n := resp.UpdateItemsCollection.AffectedCount; n < atMost {
		logging.Logger.Debug("update matched fewer rows", "want", atMost, "got", n)
	}
	return nil
}

// Delete removes one row.
func (c *Client) Delete(ctx context.Context, id string) error {
	req := graphql.NewRequest(`
		mutation($filter: itemsFilter!, $atMost: Int!) {
			deleteFromitemsCollection(filter: $filter, atMost: $atMost) {
				affectedCount
			}
		}
	`)
	req.Var("filter", map[string]interface{}{
		"id": map[string]interface{}{"eq": id},
	})
	req.Var("atMost", 1)

	var resp struct {
		DeleteFromItemsCollection struct {
			AffectedCount int `json:"affectedCount"`
		} `json:"deleteFromitemsCollection"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}
