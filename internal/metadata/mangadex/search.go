package mangadex

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

// SearchManga searches the manga catalog by title. Author and cover_art
// relationships are expanded so the mapper never needs follow-up calls.
func (c *Client) SearchManga(ctx context.Context, title string) ([]Manga, error) {
	query := url.Values{}
	query.Set("title", title)
	query.Set("limit", strconv.Itoa(defaultLimit))
	query.Set("order[relevance]", "desc")
	query.Add("includes[]", "cover_art")
	query.Add("includes[]", "author")
	query.Add("includes[]", "artist")

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
		if parsed.Result != "" && parsed.Result != "ok" {
			return fmt.Errorf("result %q", parsed.Result)
		}
		manga = parsed.Data
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("mangadex search results", "count", len(manga))
	return manga, nil
}

type rawSearchResponse struct {
	Result string  `json:"result"`
	Data   []Manga `json:"data"`
	Total  int     `json:"total"`
}
