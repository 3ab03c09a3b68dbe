package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/piproxy/internal/proxy"
)

// Proxy is the set of operations the HTTP API exposes.
type Proxy interface {
	Search(ctx context.Context, req proxy.SearchRequest) (proxy.SearchTextResponse, error)
	SearchLinks(ctx context.Context, req proxy.SearchRequest) (proxy.SearchLinksResponse, error)
	Fetch(ctx context.Context, req proxy.FetchRequest) (proxy.FetchResponse, error)
}

// NewRouter registers the proxy routes on a fresh gin engine:
//
//	POST /search        {query} -> {search_url, text}
//	POST /search/links  {query} -> {query, search_url, results}
//	POST /fetch         {url}   -> {url, text}
func NewRouter(p Proxy) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestID(), AccessLog(), gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error().Interface("panic", rec).Str("request_id", c.GetString(ctxKeyRequestID)).Msg("handler panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Detail: msgInternal})
	}))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
	})

	h := &handler{proxy: p}
	r.POST("/search", h.search)
	r.POST("/search/links", h.searchLinks)
	r.POST("/fetch", h.fetch)
	return r
}

type handler struct {
	proxy Proxy
}

// Wire bodies use pointers so an absent key is distinguishable from "".
// Empty strings pass through to the search URL and the guard.
type searchBody struct {
	Query *string `json:"query"`
}

type fetchBody struct {
	URL *string `json:"url"`
}

func (h *handler) search(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	resp, err := h.proxy.Search(c.Request.Context(), req)
	respond(c, resp, err)
}

func (h *handler) searchLinks(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	resp, err := h.proxy.SearchLinks(c.Request.Context(), req)
	respond(c, resp, err)
}

func (h *handler) fetch(c *gin.Context) {
	var body fetchBody
	if !bind(c, &body) {
		return
	}
	if body.URL == nil {
		badRequest(c, errors.New("missing field: url"))
		return
	}
	req := proxy.FetchRequest{URL: *body.URL}
	resp, err := h.proxy.Fetch(c.Request.Context(), req)
	respond(c, resp, err)
}

func bindSearch(c *gin.Context) (proxy.SearchRequest, bool) {
	var body searchBody
	if !bind(c, &body) {
		return proxy.SearchRequest{}, false
	}
	if body.Query == nil {
		badRequest(c, errors.New("missing field: query"))
		return proxy.SearchRequest{}, false
	}
	return proxy.SearchRequest{Query: *body.Query}, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Detail: msgBadRequest})
}

func respond(c *gin.Context, body any, err error) {
	if err != nil {
		_ = c.Error(err)
		status, msg := statusFor(err)
		c.AbortWithStatusJSON(status, ErrorResponse{Detail: msg})
		return
	}
	c.JSON(http.StatusOK, body)
}
