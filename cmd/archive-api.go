package main

// structures describing the remote content archive's wire formats.
// these mirror the payloads of the advanced search endpoint, the facet
// endpoint, the item metadata endpoint, and the book reader manifest
// endpoint, trimmed to the fields this service actually reads.

type archiveResponseHeader struct {
	Status int `json:"status,omitempty"`
	QTime  int `json:"QTime,omitempty"`
}

type archiveDoc struct {
	Identifier  string   `json:"identifier,omitempty"`
	Title       string   `json:"title,omitempty"`
	MediaType   string   `json:"mediatype,omitempty"`
	Creator     string   `json:"creator,omitempty"`
	Collection  []string `json:"collection,omitempty"`
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Year        int      `json:"year,omitempty"`
	Downloads   int      `json:"downloads,omitempty"`
	ItemSize    int64    `json:"item_size,omitempty"`
}

type archiveResponseDocuments struct {
	NumFound int          `json:"numFound,omitempty"`
	Start    int          `json:"start,omitempty"`
	Docs     []archiveDoc `json:"docs,omitempty"`
}

type archiveSearchResponse struct {
	ResponseHeader archiveResponseHeader    `json:"responseHeader,omitempty"`
	Response       archiveResponseDocuments `json:"response,omitempty"`
}

// the facet endpoint response is a loose structure: an "options" list of
// mixed-type entries along with assorted presentation fields we ignore.
// it is read as a raw map and the interesting part is decoded with
// mapstructure (see archive.go).

type archiveFacetOption struct {
	N   int         `json:"n,omitempty"`
	Val interface{} `json:"val,omitempty"`
}

type archiveFacetResponse struct {
	Options []archiveFacetOption `json:"options,omitempty"`
}

type archiveFile struct {
	Name   string `json:"name,omitempty"`
	Format string `json:"format,omitempty"`
	Source string `json:"source,omitempty"`
}

type archiveItemFields struct {
	Identifier string   `json:"identifier,omitempty"`
	Title      string   `json:"title,omitempty"`
	MediaType  string   `json:"mediatype,omitempty"`
	Creator    string   `json:"creator,omitempty"`
	Collection []string `json:"collection,omitempty"`
	Date       string   `json:"date,omitempty"`
	Language   string   `json:"language,omitempty"`
}

type archiveMetadata struct {
	Dir      string            `json:"dir,omitempty"`
	Server   string            `json:"server,omitempty"`
	Files    []archiveFile     `json:"files,omitempty"`
	Metadata archiveItemFields `json:"metadata,omitempty"`
}

// book reader manifest: the endpoint nests the page image spreads under
// data.brOptions.data as a list of one- or two-element page lists.

type bookPageImage struct {
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	URI      string `json:"uri,omitempty"`
	LeafNum  int    `json:"leafNum,omitempty"`
	PageSide string `json:"pageSide,omitempty"`
}

type bookReaderOptions struct {
	Data [][]bookPageImage `json:"data,omitempty"`
}

type bookReaderData struct {
	BrOptions bookReaderOptions `json:"brOptions,omitempty"`
}

type bookReaderResponse struct {
	Data bookReaderData `json:"data,omitempty"`
}

// media types known to the archive

const (
	mediaTypeAccount = "account"
	mediaTypeAudio   = "audio"
	mediaTypeData    = "data"
	mediaTypeImage   = "image"
	mediaTypeMovies  = "movies"
	mediaTypeTexts   = "texts"
	mediaTypeWeb     = "web"
)
