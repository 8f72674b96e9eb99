package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// archiveClient performs all outbound requests against the remote content
// archive: the advanced search endpoint, the per-group facet endpoint, the
// item metadata endpoint, and the book reader manifest endpoint.  it is a
// pure translation layer; it holds no mutable state beyond the http client.

type archiveClient struct {
	client      *http.Client
	searchURL   string
	facetURL    string
	metadataURL string
}

var errEmptyManifest = errors.New("book manifest is empty")

func newArchiveClient(cfg *serviceConfig) *archiveClient {
	connTimeout := integerWithMinimum(cfg.Archive.ConnTimeout, 5)
	readTimeout := integerWithMinimum(cfg.Archive.ReadTimeout, 5)

	client := &http.Client{
		Timeout: time.Duration(readTimeout) * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   time.Duration(connTimeout) * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			MaxIdleConns:        100, // we are hitting one archive host, so
			MaxIdleConnsPerHost: 100, // these two values can be the same
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &archiveClient{
		client:      client,
		searchURL:   fmt.Sprintf("%s/advancedsearch.php", cfg.Archive.Host),
		facetURL:    fmt.Sprintf("%s/search.php", cfg.Archive.Host),
		metadataURL: fmt.Sprintf("%s/metadata", cfg.Archive.Host),
	}
}

// getJSON issues one GET and decodes the JSON response, with the same
// upstream failure classification and elapsed-time logging used everywhere
// in this service.
func (a *archiveClient) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, reqErr := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if reqErr != nil {
		log.Printf("[ARCHIVE] NewRequest() failed: %s", reqErr.Error())
		return fmt.Errorf("failed to create archive request")
	}

	start := time.Now()
	res, resErr := a.client.Do(req)
	elapsedMS := int64(time.Since(start) / time.Millisecond)

	// external service failure logging (scenario 1)

	if resErr != nil {
		status := http.StatusBadRequest
		errMsg := resErr.Error()
		if strings.Contains(errMsg, "Timeout") {
			status = http.StatusRequestTimeout
			errMsg = fmt.Sprintf("%s timed out", reqURL)
		} else if strings.Contains(errMsg, "connection refused") {
			status = http.StatusServiceUnavailable
			errMsg = fmt.Sprintf("%s refused connection", reqURL)
		}

		log.Printf("[ARCHIVE] client.Do() failed: %s", resErr.Error())
		log.Printf("ERROR: Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", reqURL, status, errMsg, elapsedMS)
		return fmt.Errorf("failed to receive archive response")
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		log.Printf("ERROR: Failed response from GET %s - status %d. Elapsed Time: %d (ms)", reqURL, res.StatusCode, elapsedMS)
		return fmt.Errorf("received archive response code %d", res.StatusCode)
	}

	decoder := json.NewDecoder(res.Body)

	// external service failure logging (scenario 2)

	if decErr := decoder.Decode(out); decErr != nil {
		log.Printf("[ARCHIVE] Decode() failed: %s", decErr.Error())
		log.Printf("ERROR: Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", reqURL, http.StatusInternalServerError, decErr.Error(), elapsedMS)
		return fmt.Errorf("failed to decode archive response")
	}

	// external service success logging

	log.Printf("Successful archive response from GET %s. Elapsed Time: %d (ms)", reqURL, elapsedMS)

	return nil
}

// search runs one advanced search query.  an empty term is the inert state:
// no request is issued and a nil result is returned, which the caller
// renders as its "start typing" prompt rather than an error.
func (a *archiveClient) search(ctx context.Context, query *searchQuery) (*searchResult, error) {
	if query.term == "" {
		return nil, nil
	}

	qp := url.Values{}
	qp.Set("q", buildArchiveQuery(query.term, query.selections))
	qp.Set("page", strconv.Itoa(query.page))
	qp.Set("rows", strconv.Itoa(query.rows))
	qp.Set("output", "json")

	reqURL := fmt.Sprintf("%s?%s", a.searchURL, qp.Encode())

	var archiveRes archiveSearchResponse

	if err := a.getJSON(ctx, reqURL, &archiveRes); err != nil {
		return nil, err
	}

	log.Printf("[ARCHIVE] search: { numFound = %d, docs = %d, page = %d, rows = %d }",
		archiveRes.Response.NumFound, len(archiveRes.Response.Docs), query.page, query.rows)

	return &searchResult{
		totalFound: archiveRes.Response.NumFound,
		docs:       archiveRes.Response.Docs,
	}, nil
}

// facetCandidates fetches the candidate facet values for one group under
// the given term.  the endpoint's payload is a loose mix of presentation
// fields and the "options" list we want; the options entries themselves are
// mixed-type (years are bare numbers).  the response is read as a raw map
// and the options list is decoded with mapstructure, then normalized into
// typed facets.
func (a *archiveClient) facetCandidates(ctx context.Context, groupID string, term string) ([]facet, error) {
	group, ok := facetGroupByID(groupID)
	if ok == false {
		return nil, fmt.Errorf("unrecognized facet group: [%s]", groupID)
	}

	qp := url.Values{}
	qp.Set("query", term)
	qp.Set("morf", groupID)
	qp.Set("headless", "1")
	qp.Set("facets_xhr", "facets")
	qp.Set("output", "json")

	reqURL := fmt.Sprintf("%s?%s", a.facetURL, qp.Encode())

	raw := make(map[string]interface{})

	if err := a.getJSON(ctx, reqURL, &raw); err != nil {
		return nil, err
	}

	var facetRes archiveFacetResponse

	cfg := &mapstructure.DecoderConfig{
		Metadata:   nil,
		Result:     &facetRes,
		TagName:    "json",
		ZeroFields: true,
	}

	dec, _ := mapstructure.NewDecoder(cfg)

	if mapDecErr := dec.Decode(raw); mapDecErr != nil {
		log.Printf("[ARCHIVE] mapstructure.Decode() failed: %s", mapDecErr.Error())
		return nil, fmt.Errorf("failed to decode archive facet map")
	}

	var facets []facet

	for _, option := range facetRes.Options {
		value := facetValueString(option.Val)

		if value == "" {
			continue
		}

		facets = append(facets, facet{
			Group: group,
			Value: value,
			Count: option.N,
		})
	}

	log.Printf("[ARCHIVE] facets: { group = %s, term = [%s], candidates = %d }", groupID, term, len(facets))

	return facets, nil
}

// itemMetadata looks up one item by identifier.  the archive answers
// unknown identifiers with an empty object, which is reported as an error
// here so callers see a definite "no data" instead of a zero-valued record.
func (a *archiveClient) itemMetadata(ctx context.Context, identifier string) (*archiveMetadata, error) {
	reqURL := fmt.Sprintf("%s/%s", a.metadataURL, url.PathEscape(identifier))

	var metadata archiveMetadata

	if err := a.getJSON(ctx, reqURL, &metadata); err != nil {
		return nil, err
	}

	if metadata.Metadata.Identifier == "" {
		return nil, fmt.Errorf("no metadata for identifier: [%s]", identifier)
	}

	return &metadata, nil
}

// bookManifest resolves the page image manifest for a text item.  this is
// two upstream calls: the item metadata lookup yields the hosting server
// and item path, which parameterize the book reader endpoint on that
// server.  a manifest with no spreads is an error; the reader treats it as
// a terminal cannot-display state, not something to retry.
func (a *archiveClient) bookManifest(ctx context.Context, identifier string) (*bookManifest, error) {
	metadata, err := a.itemMetadata(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if metadata.Server == "" || metadata.Dir == "" {
		return nil, fmt.Errorf("metadata for [%s] does not locate a book server", identifier)
	}

	qp := url.Values{}
	qp.Set("id", identifier)
	qp.Set("itemPath", metadata.Dir)
	qp.Set("server", metadata.Server)
	qp.Set("format", "json")
	qp.Set("requestUri", fmt.Sprintf("/details/%s", identifier))

	reqURL := fmt.Sprintf("https://%s/BookReader/BookReaderJSIA.php?%s", metadata.Server, qp.Encode())

	var readerRes bookReaderResponse

	if err := a.getJSON(ctx, reqURL, &readerRes); err != nil {
		return nil, err
	}

	manifest := buildBookManifest(identifier, readerRes.Data.BrOptions.Data)

	if len(manifest.spreads) == 0 {
		return nil, errEmptyManifest
	}

	log.Printf("[ARCHIVE] manifest: { identifier = %s, spreads = %d }", identifier, len(manifest.spreads))

	return manifest, nil
}

// ping verifies upstream connectivity for the healthcheck; a zero-row
// query is enough to prove the search endpoint answers and decodes.
func (a *archiveClient) ping(ctx context.Context) error {
	qp := url.Values{}
	qp.Set("q", "(ping)")
	qp.Set("page", "1")
	qp.Set("rows", "0")
	qp.Set("output", "json")

	reqURL := fmt.Sprintf("%s?%s", a.searchURL, qp.Encode())

	var archiveRes archiveSearchResponse

	return a.getJSON(ctx, reqURL, &archiveRes)
}
