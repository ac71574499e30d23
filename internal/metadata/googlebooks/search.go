package googlebooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

// SearchByISBN looks volumes up with a fielded isbn: query.
func (c *Client) SearchByISBN(ctx context.Context, isbn string) ([]Volume, error) {
	return c.search(ctx, "isbn:"+isbn)
}

// SearchByTitle searches volumes by title, optionally narrowed by author.
func (c *Client) SearchByTitle(ctx context.Context, title, author string) ([]Volume, error) {
	q := "intitle:" + title
	if author != "" {
		q += " inauthor:" + author
	}
	return c.search(ctx, q)
}

func (c *Client) search(ctx context.Context, q string) ([]Volume, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("maxResults", strconv.Itoa(defaultLimit))
	query.Set("printType", "books")

	var volumes []Volume
	err := metadata.Do(ctx, c.retry, func(ctx context.Context) error {
		body, err := c.doRequest(ctx, "/volumes", query)
		if err != nil {
			return err
		}

		var parsed rawSearchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		volumes = parsed.Items
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("googlebooks search results", "count", len(volumes))
	return volumes, nil
}

type rawSearchResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}
