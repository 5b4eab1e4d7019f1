// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/tankobon/internal/platform/request"
	"github.com/taibuivan/tankobon/internal/platform/respond"
	"github.com/taibuivan/tankobon/pkg/pagination"
)

// Handler exposes the catalog read API.
type Handler struct {
	service *Service
}

// NewHandler constructs a handler over service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the series endpoints on router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listSeries)
	router.Get("/{id}", handler.getSeries)
}

// RegisterTargetRoutes mounts the crawl target endpoints on router.
func (handler *Handler) RegisterTargetRoutes(router chi.Router) {
	router.Get("/{region}/orphans", handler.listOrphans)
	router.Get("/{region}/releases", handler.listReleases)
}

func (handler *Handler) listSeries(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	year, err := requestutil.QueryInt(request, "year")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filter := Filter{
		Query:    query.Get("q"),
		StatusJP: Status(query.Get("status_jp")),
		Genre:    query.Get("genre"),
		Year:     year,
		Sort:     query.Get("sort"),
	}
	page := pagination.FromRequest(request)

	items, total, err := handler.service.ListSeries(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, items, pagination.NewMeta(page.Page, page.Limit, total))
}

func (handler *Handler) getSeries(writer http.ResponseWriter, request *http.Request) {
	seriesID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	detail, err := handler.service.GetSeries(request.Context(), seriesID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, detail)
}

func (handler *Handler) listOrphans(writer http.ResponseWriter, request *http.Request) {
	isbns, err := handler.service.OrphanISBNs(request.Context(), regionParam(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, isbns)
}

func (handler *Handler) listReleases(writer http.ResponseWriter, request *http.Request) {
	releases, err := handler.service.LatestReleases(request.Context(), regionParam(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, releases)
}

func regionParam(request *http.Request) Region {
	return Region(strings.ToUpper(requestutil.Param(request, "region")))
}
