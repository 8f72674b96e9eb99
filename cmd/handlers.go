package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type serviceResponse struct {
	status int
	data   interface{}
	err    error
}

// search result documents are returned enriched with the derived urls the
// client renders directly

type searchAPIDoc struct {
	archiveDoc
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	DetailsURL   string     `json:"details_url,omitempty"`
	Viewer       itemViewer `json:"viewer"`
}

type searchAPIResponse struct {
	TotalFound int            `json:"total_found"`
	Page       int            `json:"page"`
	Rows       int            `json:"rows"`
	TotalPages int            `json:"total_pages"`
	HasMore    bool           `json:"has_more"`
	Docs       []searchAPIDoc `json:"docs"`
}

func (s *serviceContext) searchHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(s, c)

	cl.logRequest()

	query := parseSearchURLQuery(c.Request.URL.Query(), s.config.Search.DefaultRows)

	resp := s.handleSearchRequest(&cl, query)

	cl.logResponse(resp)

	if resp.err != nil {
		c.String(resp.status, resp.err.Error())
		return
	}

	c.JSON(resp.status, resp.data)
}

func (s *serviceContext) handleSearchRequest(cl *clientContext, query *searchQuery) serviceResponse {
	if query.term == "" {
		return serviceResponse{status: http.StatusBadRequest, err: errors.New(cl.localize(msgIDStatusStartTyping))}
	}

	result, err := s.archive.search(cl.ginCtx.Request.Context(), query)
	if err != nil {
		return serviceResponse{status: http.StatusInternalServerError, err: err}
	}

	data := searchAPIResponse{
		TotalFound: result.totalFound,
		Page:       query.page,
		Rows:       query.rows,
		TotalPages: totalPages(result.totalFound, query.rows),
		HasMore:    hasMorePages(result.totalFound, query.rows, query.page),
		Docs:       []searchAPIDoc{},
	}

	for _, doc := range result.docs {
		data.Docs = append(data.Docs, searchAPIDoc{
			archiveDoc:   doc,
			ThumbnailURL: itemThumbnailURL(doc.Identifier),
			DetailsURL:   itemDetailsURL(doc.Identifier),
			Viewer:       resolveViewer(doc.Identifier, doc.MediaType),
		})
	}

	return serviceResponse{status: http.StatusOK, data: data}
}

type facetAPIResponse struct {
	Group  facetGroup `json:"group"`
	Term   string     `json:"term"`
	Facets []facet    `json:"facets"`
}

func (s *serviceContext) getFacetsHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(s, c)

	cl.logRequest()

	resp := s.handleFacetsRequest(&cl, c.Query("facet"), c.Query("any"))

	cl.logResponse(resp)

	if resp.err != nil {
		c.String(resp.status, resp.err.Error())
		return
	}

	c.JSON(resp.status, resp.data)
}

func (s *serviceContext) handleFacetsRequest(cl *clientContext, groupID string, term string) serviceResponse {
	group, ok := facetGroupByID(groupID)
	if ok == false {
		return serviceResponse{status: http.StatusBadRequest, err: fmt.Errorf("unrecognized facet group: [%s]", groupID)}
	}

	if term == "" {
		return serviceResponse{status: http.StatusBadRequest, err: errors.New(cl.localize(msgIDStatusStartTyping))}
	}

	ctx := cl.ginCtx.Request.Context()
	key := fmt.Sprintf("facets:%s:%s", groupID, term)

	data := facetAPIResponse{Group: group, Term: term}

	if cl.opts.nocache == false && s.cache.get(ctx, key, &data.Facets) == true {
		cl.log("[CACHE] hit for %s", key)
		return serviceResponse{status: http.StatusOK, data: data}
	}

	facets, err := s.archive.facetCandidates(ctx, groupID, term)
	if err != nil {
		return serviceResponse{status: http.StatusInternalServerError, err: err}
	}

	data.Facets = facets

	s.cache.set(ctx, key, facets, s.cache.facetExpire)

	return serviceResponse{status: http.StatusOK, data: data}
}

func (s *serviceContext) getMetadataHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(s, c)

	cl.logRequest()

	resp := s.handleMetadataRequest(&cl, c.Query("identifier"))

	cl.logResponse(resp)

	if resp.err != nil {
		c.String(resp.status, resp.err.Error())
		return
	}

	c.JSON(resp.status, resp.data)
}

func (s *serviceContext) handleMetadataRequest(cl *clientContext, identifier string) serviceResponse {
	if identifier == "" {
		return serviceResponse{status: http.StatusBadRequest, err: errors.New("missing identifier")}
	}

	ctx := cl.ginCtx.Request.Context()
	key := fmt.Sprintf("metadata:%s", identifier)

	var metadata archiveMetadata

	if cl.opts.nocache == false && s.cache.get(ctx, key, &metadata) == true {
		cl.log("[CACHE] hit for %s", key)
		return serviceResponse{status: http.StatusOK, data: metadata}
	}

	fetched, err := s.archive.itemMetadata(ctx, identifier)
	if err != nil {
		return serviceResponse{status: http.StatusNotFound, err: err}
	}

	s.cache.set(ctx, key, fetched, s.cache.itemExpire)

	return serviceResponse{status: http.StatusOK, data: fetched}
}

type bookReaderAPIResponse struct {
	Identifier  string       `json:"identifier"`
	Spreads     []bookSpread `json:"spreads"`
	StartSpread int          `json:"start_spread"`
}

// newBookReaderAPIResponse seeds the reader's starting spread from the
// deep-link parameter, clamped into the manifest's range.
func newBookReaderAPIResponse(identifier string, spreads []bookSpread, spreadParam string) bookReaderAPIResponse {
	return bookReaderAPIResponse{
		Identifier:  identifier,
		Spreads:     spreads,
		StartSpread: clampSpreadIndex(parseSpreadParam(spreadParam), len(spreads)),
	}
}

func (s *serviceContext) getBookReaderDataHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(s, c)

	cl.logRequest()

	resp := s.handleBookReaderDataRequest(&cl, c.Query("identifier"), c.Query("spread"))

	cl.logResponse(resp)

	if resp.err != nil {
		c.String(resp.status, resp.err.Error())
		return
	}

	c.JSON(resp.status, resp.data)
}

func (s *serviceContext) handleBookReaderDataRequest(cl *clientContext, identifier string, spreadParam string) serviceResponse {
	if identifier == "" {
		return serviceResponse{status: http.StatusBadRequest, err: errors.New("missing identifier")}
	}

	ctx := cl.ginCtx.Request.Context()
	key := fmt.Sprintf("manifest:%s", identifier)

	var spreads []bookSpread

	if cl.opts.nocache == false && s.cache.get(ctx, key, &spreads) == true {
		cl.log("[CACHE] hit for %s", key)
		return serviceResponse{status: http.StatusOK, data: newBookReaderAPIResponse(identifier, spreads, spreadParam)}
	}

	manifest, err := s.archive.bookManifest(ctx, identifier)

	if err != nil {
		// an item the reader cannot display is a definite answer, not a
		// service failure
		if errors.Is(err, errEmptyManifest) == true {
			return serviceResponse{status: http.StatusNotFound, err: errors.New(cl.localize(msgIDStatusCannotShow))}
		}

		return serviceResponse{status: http.StatusNotFound, err: err}
	}

	s.cache.set(ctx, key, manifest.spreads, s.cache.itemExpire)

	return serviceResponse{status: http.StatusOK, data: newBookReaderAPIResponse(identifier, manifest.spreads, spreadParam)}
}

func (s *serviceContext) ignoreHandler(c *gin.Context) {
}

func (s *serviceContext) versionHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(s, c)

	c.JSON(http.StatusOK, s.version)
}

func (s *serviceContext) healthCheckHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(s, c)

	pingErr := s.archive.ping(c.Request.Context())

	// build response

	internalServiceError := false

	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}

	hcArchive := hcResp{Healthy: true}
	if pingErr != nil {
		internalServiceError = true
		hcArchive = hcResp{Healthy: false, Message: pingErr.Error()}
	}

	hcMap := make(map[string]hcResp)
	hcMap["archive"] = hcArchive

	if s.cache.enabled() == true {
		hcRedis := hcResp{Healthy: true}
		if err := s.cache.client.Ping(c.Request.Context()).Err(); err != nil {
			// degraded but not fatal; the service falls back to direct fetches
			hcRedis = hcResp{Healthy: false, Message: err.Error()}
		}
		hcMap["redis"] = hcRedis
	}

	hcStatus := http.StatusOK
	if internalServiceError == true {
		hcStatus = http.StatusInternalServerError
	}

	c.JSON(hcStatus, hcMap)
}
