package openlibrary

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

// SearchByISBN looks an edition up through the fielded search query.
func (c *Client) SearchByISBN(ctx context.Context, isbn string) ([]Doc, error) {
	query := url.Values{}
	query.Set("q", "isbn:"+isbn)
	return c.search(ctx, query)
}

// SearchByTitle searches works by title, optionally narrowed by author.
func (c *Client) SearchByTitle(ctx context.Context, title, author string) ([]Doc, error) {
	query := url.Values{}
	query.Set("title", title)
	if author != "" {
		query.Set("author", author)
	}
	return c.search(ctx, query)
}

func (c *Client) search(ctx context.Context, query url.Values) ([]Doc, error) {
	query.Set("limit", strconv.Itoa(defaultLimit))
	query.Set("fields", searchFields)

	var docs []Doc
	err := metadata.Do(ctx, c.retry, func(ctx context.Context) error {
		body, err := c.doRequest(ctx, "/search.json", query)
		if err != nil {
			return err
		}

		var parsed rawSearchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		docs = parsed.Docs
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("openlibrary search results", "count", len(docs))
	return docs, nil
}

type rawSearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}
