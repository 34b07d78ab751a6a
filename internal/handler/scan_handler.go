package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"GoldEater/internal/domain/helper"
	domain "GoldEater/internal/domain/model"
	"GoldEater/internal/domain/service"
	repoImpl "GoldEater/internal/repository"
	"GoldEater/internal/usecase"
	"GoldEater/model"
)

// ScanHandler スキャン実行と結果参照のHTTPハンドラー
type ScanHandler struct {
	scanUseCase usecase.ScanUseCase
	districts   []domain.District
	baseCtx     context.Context
	logger      *zap.Logger
	now         func() time.Time

	wg sync.WaitGroup
}

// NewScanHandler ScanHandlerの新しいインスタンスを作成。
// baseCtx はバックグラウンドで走るランの親コンテキスト。
func NewScanHandler(baseCtx context.Context, scanUseCase usecase.ScanUseCase, districts []domain.District, logger *zap.Logger) *ScanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanHandler{
		scanUseCase: scanUseCase,
		districts:   districts,
		baseCtx:     baseCtx,
		logger:      logger,
		now:         time.Now,
	}
}

// Wait バックグラウンドのランがすべて終わるまで待つ
func (h *ScanHandler) Wait() {
	h.wg.Wait()
}

// Health GET /api/health
func (h *ScanHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "goldeater"})
}

// GetPromptTypes GET /api/prompt-types
func (h *ScanHandler) GetPromptTypes(c *gin.Context) {
	resp := model.GetPromptTypesResponse{Platforms: domain.GetAllPlatforms()}
	for _, id := range domain.GetAllPromptTypes() {
		resp.PromptTypes = append(resp.PromptTypes, model.PromptType{
			ID:          id,
			DisplayName: domain.GetPromptTypeDisplayName(id),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GetDistricts GET /api/districts
func (h *ScanHandler) GetDistricts(c *gin.Context) {
	c.JSON(http.StatusOK, model.GetDistrictsResponse{Districts: h.districts})
}

// GetGrid GET /api/districts/:name/grid - プロバイダを呼ばずにグリッドをプレビュー
func (h *ScanHandler) GetGrid(c *gin.Context) {
	d, cells, err := h.scanUseCase.Grid(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.GetGridResponse{
		District:    d.Name,
		DisplayName: d.DisplayName,
		Center:      d.Center,
		Count:       len(cells),
		Cells:       cells,
	})
}

// GetBusinesses GET /api/businesses?district=&cuisine=&sort=distance&format=geojson
func (h *ScanHandler) GetBusinesses(c *gin.Context) {
	district := c.Query("district")
	found, err := h.scanUseCase.Businesses(c.Request.Context(), district)
	if err != nil {
		h.respondError(c, err)
		return
	}

	refs := make([]*domain.Business, len(found))
	for i := range found {
		refs[i] = &found[i]
	}
	if cuisine := c.Query("cuisine"); cuisine != "" {
		refs = helper.FilterByCuisine(refs, strings.Split(cuisine, ","))
	}
	if c.Query("sort") == "distance" {
		if d, ok := h.district(district); ok {
			helper.SortBusinessesByDistance(d.Center, refs)
		}
	}
	businesses := make([]domain.Business, 0, len(refs))
	for _, b := range refs {
		businesses = append(businesses, *b)
	}

	if c.Query("format") == "geojson" {
		c.JSON(http.StatusOK, repoImpl.BusinessesToFeatureCollection(businesses))
		return
	}
	c.JSON(http.StatusOK, model.GetBusinessesResponse{
		District:   district,
		Count:      len(businesses),
		Businesses: businesses,
	})
}

func (h *ScanHandler) district(name string) (domain.District, bool) {
	for _, d := range h.districts {
		if d.Name == name {
			return d, true
		}
	}
	return domain.District{}, false
}

// GetRun GET /api/runs/:id
func (h *ScanHandler) GetRun(c *gin.Context) {
	report, err := h.scanUseCase.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CreateScan POST /api/scans - 設定を検証してからバックグラウンドでランを開始する
func (h *ScanHandler) CreateScan(c *gin.Context) {
	var req model.CreateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid JSON format: " + err.Error(),
		})
		return
	}

	workItems, err := h.scanUseCase.PlannedItems(req.District, req.Platforms, req.PromptTypes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	parallel := true
	if req.Parallel != nil {
		parallel = *req.Parallel
	}
	runID := service.NewRunID(h.now())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_, err := h.scanUseCase.Run(h.baseCtx, usecase.ScanRequest{
			District:    req.District,
			Platforms:   req.Platforms,
			PromptTypes: req.PromptTypes,
			Parallel:    parallel,
			RunID:       runID,
		})
		if err != nil {
			h.logger.Error("background scan failed", zap.String("run_id", runID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, model.CreateScanResponse{
		Status:    "accepted",
		Message:   "scan started",
		RunID:     runID,
		WorkItems: workItems,
	})
}

func (h *ScanHandler) respondError(c *gin.Context, err error) {
	var cfgErr *domain.ConfigError
	switch {
	case errors.Is(err, domain.ErrUnknownDistrict):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "unknown_district", Message: err.Error()})
	case errors.Is(err, domain.ErrRunNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid_config", Message: err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
}
