package mal

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

// SearchManga searches the manga catalog by name.
func (c *Client) SearchManga(ctx context.Context, name string) ([]Manga, error) {
	query := url.Values{}
	query.Set("q", name)
	query.Set("limit", strconv.Itoa(defaultLimit))
	query.Set("fields", searchFields)

	var manga []Manga
	err := metadata.Do(ctx, c.retry, func(ctx context.Context) error {
		body, err := c.doRequest(ctx, "/manga", query)
		if err != nil {
			return err
		}

		var parsed rawSearchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		manga = manga[:0]
		for _, row := range parsed.Data {
			manga = append(manga, row.Node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("mal search results", "count", len(manga))
	return manga, nil
}

type rawSearchResponse struct {
	Data []struct {
		Node Manga `json:"node"`
	} `json:"data"`
}
