package main

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/fwojciec/seocrawl"
	"gopkg.in/yaml.v3"
)

// LoadOptions reads crawl options from a YAML file on top of the
// defaults. Unknown keys are rejected. An empty path returns the defaults.
//
// Durations are written as Go duration strings:
//
//	maxDepth: 3
//	pageLoadTimeout: 15s
//	stealth:
//	  userAgent: "Mozilla/5.0 ..."
func LoadOptions(path string) (seocrawl.Options, error) {
	opts := seocrawl.DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, seocrawl.Errorf(seocrawl.EINVALID, "read options file: %v", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return opts, seocrawl.Errorf(seocrawl.EINVALID, "parse options file %s: %v", path, err)
	}
	return opts, nil
}

// options merges the flags that were given over the options file.
func (c *CrawlCmd) options() (seocrawl.Options, error) {
	opts, err := LoadOptions(c.Config)
	if err != nil {
		return opts, err
	}

	setIf(&opts.MaxDepth, c.MaxDepth)
	setIf(&opts.MaxPages, c.MaxPages)
	setIf(&opts.Delay, c.Delay)
	setIf(&opts.Jitter, c.Jitter)
	setIf(&opts.PageLoadTimeout, c.PageLoadTimeout)
	setIf(&opts.AnalyzeWait, c.AnalyzeWait)
	setIf(&opts.DeduplicateLinks, c.DedupLinks)
	setIf(&opts.RestrictToCurrentFolder, c.RestrictFolder)
	setIf(&opts.Stealth.SuppressAutomationSignal, c.HideAutomation)
	if c.UserAgent != "" {
		opts.Stealth.UserAgent = c.UserAgent
	}
	if c.AcceptLanguage != "" {
		opts.Stealth.AcceptLanguage = c.AcceptLanguage
	}
	if c.Platform != "" {
		opts.Stealth.Platform = c.Platform
	}

	return opts, opts.Validate()
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
