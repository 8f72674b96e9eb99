package main

import (
	"fmt"
	"net/url"
)

// canonical archive URLs for an item, and the viewer resolution rule that
// decides how an item's media type is presented

const archivePublicHost = "https://archive.org"

func itemThumbnailURL(identifier string) string {
	return fmt.Sprintf("%s/services/img/%s", archivePublicHost, url.PathEscape(identifier))
}

func itemDetailsURL(identifier string) string {
	return fmt.Sprintf("%s/details/%s", archivePublicHost, url.PathEscape(identifier))
}

func itemStreamURL(identifier string) string {
	return fmt.Sprintf("%s/stream/%s", archivePublicHost, url.PathEscape(identifier))
}

// viewer kinds, in order of capability: the paged book reader for texts,
// a plain stream embed as the texts fallback, and a details link for
// everything we have no local presentation for.

type viewerKind string

const (
	viewerBookReader viewerKind = "bookreader"
	viewerStream     viewerKind = "stream"
	viewerNone       viewerKind = "none"
)

type itemViewer struct {
	Kind viewerKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
}

// resolveViewer picks the presentation for an item based on its media
// type.  texts get the book reader; anything else falls back to a link
// out to the archive's own details page.
func resolveViewer(identifier string, mediaType string) itemViewer {
	switch mediaType {
	case mediaTypeTexts:
		return itemViewer{Kind: viewerBookReader, URL: itemStreamURL(identifier)}

	default:
		return itemViewer{Kind: viewerNone, URL: itemDetailsURL(identifier)}
	}
}
