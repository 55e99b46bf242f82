package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/seocrawl"
)

// Run executes the sitemap command.
func (c *SitemapCmd) Run(deps *Dependencies) error {
	inv, err := deps.Sitemaps.DiscoverSitemap(deps.Ctx, c.URL, seocrawl.SitemapOptions{MaxURLs: c.MaxURLs})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", seocrawl.ErrorMessage(err))
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(inv)
}
