package scrape

import (
	"context"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/mentycs/docbrew/fetch"
)

const robotsUserAgent = "docbrew"

// robotsChecker fetches and caches robots.txt per origin, honored by
// WebScraperStrategy before fetching each queued item (§4.3 politeness, a
// feature the distilled spec omitted but the original crawler implements).
// A disallowed item is already enqueued by then: it yields no document but
// still counts toward MaxPages.
type robotsChecker struct {
	fetcher fetch.Fetcher

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func newRobotsChecker(fetcher fetch.Fetcher) *robotsChecker {
	return &robotsChecker{
		fetcher: fetcher,
		cache:   map[string]*robotstxt.RobotsData{},
	}
}

// Allowed reports whether targetURL may be fetched. Any failure to load
// robots.txt (missing, malformed, network error) fails open.
func (c *robotsChecker) Allowed(ctx context.Context, targetURL string) bool {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return true
	}

	origin := parsed.Scheme + "://" + parsed.Host

	data := c.load(ctx, origin)
	if data == nil {
		return true
	}

	group := data.FindGroup(robotsUserAgent)

	path := parsed.Path
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	return group.Test(path)
}

func (c *robotsChecker) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	c.mu.Lock()
	if data, ok := c.cache[origin]; ok {
		c.mu.Unlock()

		return data
	}
	c.mu.Unlock()

	raw, err := c.fetcher.Fetch(ctx, origin+"/robots.txt", fetch.Options{FollowRedirects: true})

	var data *robotstxt.RobotsData

	if err == nil {
		data, err = robotstxt.FromBytes(raw.Content)
	}

	if err != nil {
		data = nil
	}

	c.mu.Lock()
	c.cache[origin] = data
	c.mu.Unlock()

	return data
}
