package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/service"
	"github.com/rescuedash/shelter-dashboard/internal/validator"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/response"
)

// Handler handles HTTP requests for the shelter dashboard.
type Handler struct {
	searchService    service.SearchService
	recordService    service.RecordService
	dashboardService service.DashboardService
	exportService    service.ExportService
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	searchService service.SearchService,
	recordService service.RecordService,
	dashboardService service.DashboardService,
	exportService service.ExportService,
) *Handler {
	return &Handler{
		searchService:    searchService,
		recordService:    recordService,
		dashboardService: dashboardService,
		exportService:    exportService,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/search", h.Search)
		api.GET("/data", h.ListRecords)
		api.GET("/stats", h.Stats)
		api.GET("/map", h.Location)
		api.GET("/summary", h.Summary)

		agg := api.Group("/aggregation")
		{
			agg.GET("/outcome-type", h.OutcomeTypes)
			agg.GET("/animal-type", h.AnimalTypes)
			agg.GET("/breed", h.Breeds)
			agg.GET("/monthly", h.Monthly)
		}

		animal := api.Group("/animal")
		{
			animal.POST("", h.CreateRecord)
			animal.GET("/:id", h.GetRecord)
			animal.PUT("/:id", h.UpdateRecord)
			animal.DELETE("/:id", h.DeleteRecord)
		}

		api.GET("/export/csv", h.ExportCSV)

		exports := api.Group("/exports")
		{
			exports.POST("", h.ArchiveExport)
			exports.GET("", h.ListExports)
			exports.GET("/:name", h.DownloadExport)
			exports.DELETE("/:name", h.DeleteExport)
		}
	}
}

// Search handles cached full-text search.
func (h *Handler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid search request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.searchService.Search(ctx, &req)
	if err != nil {
		l.Error().Err(err).Str(log.FieldQuery, req.Query).Msg("search failed")
		response.InternalError(c, "search failed")
		return
	}

	response.Success(c, result)
}

// ListRecords lists the records of a rescue preset.
func (h *Handler) ListRecords(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	req, ok := bindDashboard(c)
	if !ok {
		return
	}

	records, err := h.dashboardService.ListRecords(ctx, req.FilterType, req.Limit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldFilter, string(req.FilterType)).Msg("failed to list records")
		response.InternalError(c, "failed to list records")
		return
	}

	response.Success(c, records)
}

// Stats returns the record total and search cache statistics.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	stats, err := h.dashboardService.Stats(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to get stats")
		response.InternalError(c, "failed to get stats")
		return
	}

	response.Success(c, stats)
}

// Location returns the map marker for one row of a filtered listing.
func (h *Handler) Location(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LocationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid row index")
		return
	}
	req.FilterType = defaultRescue(req.FilterType)

	loc, err := h.dashboardService.Location(ctx, req.FilterType, *req.RowIndex)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRowIndex):
			response.BadRequest(c, "invalid row index")
		case errors.Is(err, service.ErrNoLocation):
			response.NotFound(c, "location data not available")
		default:
			l.Error().Err(err).Int("row_index", *req.RowIndex).Msg("failed to get location")
			response.InternalError(c, "failed to get location")
		}
		return
	}

	response.Success(c, loc)
}

// Summary returns statistics and every aggregation for a rescue preset.
func (h *Handler) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	req, ok := bindDashboard(c)
	if !ok {
		return
	}

	summary, err := h.dashboardService.Summary(ctx, req.FilterType)
	if err != nil {
		l.Error().Err(err).Str(log.FieldFilter, string(req.FilterType)).Msg("failed to build summary")
		response.InternalError(c, "failed to build summary")
		return
	}

	response.Success(c, summary)
}

// OutcomeTypes aggregates by outcome type.
func (h *Handler) OutcomeTypes(c *gin.Context) {
	req, ok := bindDashboard(c)
	if !ok {
		return
	}
	result, err := h.dashboardService.OutcomeTypes(c.Request.Context(), req.FilterType)
	respondAggregation(c, "outcome-type", result, err)
}

// AnimalTypes aggregates by animal type.
func (h *Handler) AnimalTypes(c *gin.Context) {
	req, ok := bindDashboard(c)
	if !ok {
		return
	}
	result, err := h.dashboardService.AnimalTypes(c.Request.Context(), req.FilterType)
	respondAggregation(c, "animal-type", result, err)
}

// Breeds aggregates the most common breeds.
func (h *Handler) Breeds(c *gin.Context) {
	req, ok := bindDashboard(c)
	if !ok {
		return
	}
	result, err := h.dashboardService.Breeds(c.Request.Context(), req.FilterType)
	respondAggregation(c, "breed", result, err)
}

// Monthly aggregates by outcome month.
func (h *Handler) Monthly(c *gin.Context) {
	req, ok := bindDashboard(c)
	if !ok {
		return
	}
	result, err := h.dashboardService.Monthly(c.Request.Context(), req.FilterType)
	respondAggregation(c, "monthly", result, err)
}

// CreateRecord creates a new record.
func (h *Handler) CreateRecord(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var rec domain.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		l.Warn().Err(err).Msg("failed to bind record")
		response.BadRequest(c, "request body must be a JSON object")
		return
	}

	created, err := h.recordService.Create(ctx, rec)
	if err != nil {
		if h.handleRecordError(c, err) {
			return
		}
		l.Error().Err(err).Msg("failed to create record")
		response.InternalError(c, "failed to create record")
		return
	}

	response.Created(c, created)
}

// GetRecord retrieves a record by ID.
func (h *Handler) GetRecord(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	rec, err := h.recordService.Get(ctx, id)
	if err != nil {
		if h.handleRecordError(c, err) {
			return
		}
		l.Error().Err(err).Str(log.FieldRecordID, id).Msg("failed to get record")
		response.InternalError(c, "failed to get record")
		return
	}

	response.Success(c, rec)
}

// UpdateRecord sets the given fields on a record.
func (h *Handler) UpdateRecord(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	var fields domain.Record
	if err := c.ShouldBindJSON(&fields); err != nil {
		l.Warn().Err(err).Msg("failed to bind record")
		response.BadRequest(c, "request body must be a JSON object")
		return
	}

	rec, err := h.recordService.Update(ctx, id, fields)
	if err != nil {
		if h.handleRecordError(c, err) {
			return
		}
		l.Error().Err(err).Str(log.FieldRecordID, id).Msg("failed to update record")
		response.InternalError(c, "failed to update record")
		return
	}

	response.Success(c, rec)
}

// DeleteRecord deletes a record.
func (h *Handler) DeleteRecord(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	id := c.Param("id")

	if err := h.recordService.Delete(ctx, id); err != nil {
		if h.handleRecordError(c, err) {
			return
		}
		l.Error().Err(err).Str(log.FieldRecordID, id).Msg("failed to delete record")
		response.InternalError(c, "failed to delete record")
		return
	}

	response.Success(c, gin.H{"id": id})
}

// ExportCSV downloads the records of a search or rescue preset as CSV.
func (h *Handler) ExportCSV(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	export, err := h.exportService.ExportCSV(ctx, req.FilterType, req.Search)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			response.NotFound(c, "no data to export")
			return
		}
		l.Error().Err(err).Str(log.FieldFilter, string(req.FilterType)).Msg("failed to export csv")
		response.InternalError(c, "failed to export csv")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.Filename)
	c.Data(http.StatusOK, "text/csv", export.Data)
}

// ArchiveExport stores a CSV export in the export archive.
func (h *Handler) ArchiveExport(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	file, err := h.exportService.Archive(ctx, req.FilterType, req.Search)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			response.NotFound(c, "no data to export")
			return
		}
		l.Error().Err(err).Str(log.FieldFilter, string(req.FilterType)).Msg("failed to archive export")
		response.InternalError(c, "failed to archive export")
		return
	}

	response.Created(c, file)
}

// ListExports lists archived exports.
func (h *Handler) ListExports(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	files, err := h.exportService.ListArchived(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to list exports")
		response.InternalError(c, "failed to list exports")
		return
	}

	response.Success(c, files)
}

// DownloadExport streams an archived export.
func (h *Handler) DownloadExport(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	name := c.Param("name")

	rc, err := h.exportService.OpenArchived(ctx, name)
	if err != nil {
		if h.handleExportError(c, err) {
			return
		}
		l.Error().Err(err).Str("name", name).Msg("failed to open export")
		response.InternalError(c, "failed to open export")
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "text/csv", rc, map[string]string{
		"Content-Disposition": "attachment; filename=" + name,
	})
}

// DeleteExport removes an archived export.
func (h *Handler) DeleteExport(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	name := c.Param("name")

	if err := h.exportService.DeleteArchived(ctx, name); err != nil {
		if h.handleExportError(c, err) {
			return
		}
		l.Error().Err(err).Str("name", name).Msg("failed to delete export")
		response.InternalError(c, "failed to delete export")
		return
	}

	response.Success(c, gin.H{"name": name})
}

func (h *Handler) handleRecordError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		response.NotFound(c, "record not found")
	case errors.Is(err, service.ErrInvalidRecord):
		var ve *validator.ValidationError
		if errors.As(err, &ve) {
			response.Invalid(c, "record failed validation", ve.Details)
		} else {
			response.Invalid(c, "record failed validation", nil)
		}
	default:
		return false
	}
	return true
}

func (h *Handler) handleExportError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrExportNotFound):
		response.NotFound(c, "export not found")
	case errors.Is(err, service.ErrInvalidExport):
		response.BadRequest(c, "invalid export name")
	default:
		return false
	}
	return true
}

func bindDashboard(c *gin.Context) (*domain.DashboardRequest, bool) {
	var req domain.DashboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	req.FilterType = defaultRescue(req.FilterType)
	return &req, true
}

// defaultRescue maps an omitted filter_type to the "All" preset.
func defaultRescue(rt domain.RescueType) domain.RescueType {
	if rt == "" {
		return domain.RescueAll
	}
	return rt
}

func respondAggregation(c *gin.Context, name string, result interface{}, err error) {
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str("aggregation", name).Msg("aggregation failed")
		response.InternalError(c, "aggregation failed")
		return
	}
	response.Success(c, result)
}
