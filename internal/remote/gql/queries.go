package gql

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"github.com/robby/homestock/internal/domain"
)

// bigint decodes pg_graphql BigInt values, which arrive as JSON strings, as
// well as plain numbers from int4 columns.
type bigint int64

func (b *bigint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*b = bigint(v)
	return nil
}

type itemNode struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Note         *string `json:"note"`
	State        string  `json:"state"`
	Pinned       bool    `json:"pinned"`
	PinOrder     *bigint `json:"pin_order"`
	CreatedOrder bigint  `json:"created_order"`
	UpdatedAt    string  `json:"updated_at"`
}

func (n itemNode) item() domain.Item {
	item := domain.Item{
		ID:           n.ID,
		Name:         n.Name,
		Note:         n.Note,
		State:        domain.State(n.State),
		Pinned:       n.Pinned,
		CreatedOrder: int64(n.CreatedOrder),
	}
	if n.PinOrder != nil {
		v := int64(*n.PinOrder)
		item.PinOrder = &v
	}
	if n.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, n.UpdatedAt); err == nil {
			item.UpdatedAt = t
		}
	}
	return item
}

// FetchAll reads the whole items collection, following cursors until the
// last page.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	cursor := ""

	for {
		page, next, hasNext, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if !hasNext || next == "" {
			break
		}
		cursor = next
	}

	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

// fetchPage fetches one page of items.
// Returns the items, the next cursor, and whether more pages exist.
func (c *Client) fetchPage(ctx context.Context, cursor string) ([]domain.Item, string, bool, error) {
	req := graphql.NewRequest(`
		query($first: Int!, $after: Cursor) {
			itemsCollection(first: $first, after: $after) {
				pageInfo {
					hasNextPage
					endCursor
				}
				edges {
					node {
						id
						name
						note
						state
						pinned
						pin_order
						created_order
						updated_at
					}
				}
			}
		}
	`)
	req.Var("first", c.pageSize)
	if cursor != "" {
		req.Var("after", cursor)
	} else {
		req.Var("after", nil)
	}

	var resp struct {
		ItemsCollection struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node itemNode `json:"node"`
			} `json:"edges"`
		} `json:"itemsCollection"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, "", false, fmt.Errorf("failed to fetch items: %w", err)
	}

	items := make([]domain.Item, 0, len(resp.ItemsCollection.Edges))
	for _, edge := range resp.ItemsCollection.Edges {
		items = append(items, edge.Node.item())
	}

	page := resp.ItemsCollection.PageInfo
	return items, page.EndCursor, page.HasNextPage, nil
}
