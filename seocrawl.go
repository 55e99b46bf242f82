// Package seocrawl crawls a web site from a seed URL, visiting internal
// pages breadth-first through a browser renderer and extracting
// SEO-relevant data from each rendered page. Sitemap discovery builds the
// site's URL inventory independently of the traversal.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, http/).
package seocrawl
