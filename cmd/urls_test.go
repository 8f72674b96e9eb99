package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemURLs(t *testing.T) {
	assert.Equal(t, "https://archive.org/services/img/item1", itemThumbnailURL("item1"))
	assert.Equal(t, "https://archive.org/details/item1", itemDetailsURL("item1"))
	assert.Equal(t, "https://archive.org/stream/item1", itemStreamURL("item1"))
}

func TestResolveViewer(t *testing.T) {
	viewer := resolveViewer("item1", mediaTypeTexts)

	assert.Equal(t, viewerBookReader, viewer.Kind)
	assert.Equal(t, "https://archive.org/stream/item1", viewer.URL)

	viewer = resolveViewer("item2", mediaTypeMovies)

	assert.Equal(t, viewerNone, viewer.Kind)
	assert.Equal(t, "https://archive.org/details/item2", viewer.URL)
}
