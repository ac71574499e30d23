package anilist

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

// searchQuery is the one GraphQL document the pipeline needs: a manga
// search page trimmed to the fields the mapper consumes.
const searchQuery = `query ($search: String, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(search: $search, type: MANGA) {
      id
      format
      averageScore
      title { romaji english native }
      synonyms
      description
      genres
      startDate { year month day }
      coverImage { extraLarge large medium }
      staff(perPage: 8) {
        edges {
          role
          node { name { full } }
        }
      }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type rawSearchResponse struct {
	Data struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// SearchManga searches the manga catalog by name.
func (c *Client) SearchManga(ctx context.Context, name string) ([]Media, error) {
	payload, err := json.Marshal(graphqlRequest{
		Query: searchQuery,
		Variables: map[string]any{
			"search":  name,
			"perPage": defaultLimit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var media []Media
	err = metadata.Do(ctx, c.retry, func(ctx context.Context) error {
		body, err := c.doRequest(ctx, payload)
		if err != nil {
			return err
		}

		var parsed rawSearchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		if err := graphqlErr(parsed.Errors); err != nil {
			return err
		}
		media = parsed.Data.Page.Media
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("anilist search results", "count", len(media))
	return media, nil
}

// graphqlErr maps GraphQL-level errors. Some rate-limit rejections come
// back as 200 with an error object carrying status 429.
func graphqlErr(errs []graphqlError) error {
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		if e.Status == http.StatusTooManyRequests {
			return metadata.Transient(metadata.ErrRateLimited)
		}
	}
	return fmt.Errorf("graphql: %s", errs[0].Message)
}
