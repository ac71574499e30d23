package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/config"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/googlebooks"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mal"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mangadex"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
	"github.com/inkshelfapp/inkshelf-server/internal/ratelimit"
)

// ProvideRateLimits provides the per-source rate limit registry.
func ProvideRateLimits(i do.Injector) (*ratelimit.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limits := map[string]ratelimit.Limit{
		openlibrary.Source: {MaxTokens: cfg.Sources.OpenLibrary.RateLimit, Window: cfg.Sources.OpenLibrary.RateWindow},
		googlebooks.Source: {MaxTokens: cfg.Sources.GoogleBooks.RateLimit, Window: cfg.Sources.GoogleBooks.RateWindow},
		anilist.Source:     {MaxTokens: cfg.Sources.AniList.RateLimit, Window: cfg.Sources.AniList.RateWindow},
		mal.Source:         {MaxTokens: cfg.Sources.MAL.RateLimit, Window: cfg.Sources.MAL.RateWindow},
		mangadex.Source:    {MaxTokens: cfg.Sources.MangaDex.RateLimit, Window: cfg.Sources.MangaDex.RateWindow},
	}

	// Sources outside the table share a conservative allowance.
	fallback := ratelimit.Limit{MaxTokens: 60, Window: time.Minute}

	return ratelimit.NewRegistry(limits, fallback), nil
}

// ProvideOpenLibraryClient provides the Open Library metadata client.
func ProvideOpenLibraryClient(i do.Injector) (*openlibrary.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limits := do.MustInvoke[*ratelimit.Registry](i)

	client := openlibrary.New(openlibrary.Config{
		BaseURL:    cfg.Sources.OpenLibrary.BaseURL,
		Timeout:    cfg.Sources.OpenLibrary.Timeout,
		MaxRetries: cfg.Sources.OpenLibrary.MaxRetries,
	}, limits.Bucket(openlibrary.Source), log.Logger)

	return client, nil
}

// ProvideGoogleBooksClient provides the Google Books metadata client.
// Without an API key the client is constructed but reports unavailable,
// and the enrichment chain skips it.
func ProvideGoogleBooksClient(i do.Injector) (*googlebooks.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limits := do.MustInvoke[*ratelimit.Registry](i)

	client := googlebooks.New(googlebooks.Config{
		BaseURL:    cfg.Sources.GoogleBooks.BaseURL,
		APIKey:     cfg.Sources.GoogleBooks.APIKey,
		Timeout:    cfg.Sources.GoogleBooks.Timeout,
		MaxRetries: cfg.Sources.GoogleBooks.MaxRetries,
	}, limits.Bucket(googlebooks.Source), log.Logger)

	if !client.Available() {
		log.Info("Google Books source disabled, no API key configured")
	}

	return client, nil
}

// ProvideAniListClient provides the AniList metadata client.
func ProvideAniListClient(i do.Injector) (*anilist.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limits := do.MustInvoke[*ratelimit.Registry](i)

	client := anilist.New(anilist.Config{
		BaseURL:    cfg.Sources.AniList.BaseURL,
		Timeout:    cfg.Sources.AniList.Timeout,
		MaxRetries: cfg.Sources.AniList.MaxRetries,
	}, limits.Bucket(anilist.Source), log.Logger)

	return client, nil
}

// ProvideMALClient provides the MyAnimeList metadata client.
// Without a client ID the client is constructed but reports unavailable,
// and the enrichment chain skips it.
func ProvideMALClient(i do.Injector) (*mal.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limits := do.MustInvoke[*ratelimit.Registry](i)

	client := mal.New(mal.Config{
		BaseURL:    cfg.Sources.MAL.BaseURL,
		ClientID:   cfg.Sources.MAL.ClientID,
		Timeout:    cfg.Sources.MAL.Timeout,
		MaxRetries: cfg.Sources.MAL.MaxRetries,
	}, limits.Bucket(mal.Source), log.Logger)

	if !client.Available() {
		log.Info("MyAnimeList source disabled, no client ID configured")
	}

	return client, nil
}

// ProvideMangaDexClient provides the MangaDex metadata client.
func ProvideMangaDexClient(i do.Injector) (*mangadex.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limits := do.MustInvoke[*ratelimit.Registry](i)

	client := mangadex.New(mangadex.Config{
		BaseURL:    cfg.Sources.MangaDex.BaseURL,
		Timeout:    cfg.Sources.MangaDex.Timeout,
		MaxRetries: cfg.Sources.MangaDex.MaxRetries,
	}, limits.Bucket(mangadex.Source), log.Logger)

	return client, nil
}
