package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pawonlab/stockwise/internal/config"
	"github.com/pawonlab/stockwise/internal/domain"
	"github.com/pawonlab/stockwise/internal/engine/costing"
	"github.com/pawonlab/stockwise/internal/repository"
	"github.com/pawonlab/stockwise/internal/service"
)

type InventoryHandler struct {
	service *service.InventoryService
	engine  config.EngineConfig
}

func NewInventoryHandler(service *service.InventoryService, engine config.EngineConfig) *InventoryHandler {
	return &InventoryHandler{service: service, engine: engine}
}

type recordTransactionRequest struct {
	Kind      string   `json:"kind" binding:"required"`
	Quantity  float64  `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
	Reference string   `json:"reference"`
	Notes     string   `json:"notes"`
}

func (h *InventoryHandler) parseFilter(c *gin.Context) repository.IngredientFilter {
	filter := repository.IngredientFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}

	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter.Category = category
	}

	if supplier := strings.TrimSpace(c.Query("supplier")); supplier != "" {
		filter.Supplier = supplier
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.Search = search
	}

	if ids := strings.TrimSpace(c.Query("ids")); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.IDs = append(filter.IDs, id)
			}
		}
	}

	return filter
}

func (h *InventoryHandler) ListIngredients(c *gin.Context) {
	filter := h.parseFilter(c)

	ingredients, total, err := h.service.ListIngredients(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      ingredients,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *InventoryHandler) GetIngredient(c *gin.Context) {
	ing, err := h.service.GetIngredient(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ing})
}

func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	var since time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}

	txs, err := h.service.ListTransactions(c.Request.Context(), c.Param("id"), since)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txs})
}

func (h *InventoryHandler) RecordTransaction(c *gin.Context) {
	var req recordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	kind, ok := domain.ParseTransactionKind(req.Kind)
	if !ok {
		errorResponse(c, http.StatusBadRequest, "unknown transaction kind: "+req.Kind)
		return
	}

	saved, err := h.service.RecordTransaction(c.Request.Context(), domain.StockTransaction{
		IngredientID: c.Param("id"),
		Kind:         kind,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Reference:    req.Reference,
		Notes:        req.Notes,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": saved})
}

func (h *InventoryHandler) GetAnalysis(c *gin.Context) {
	analysis, err := h.service.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": analysis})
}

func (h *InventoryHandler) GetInsights(c *gin.Context) {
	insights, err := h.service.GetInsights(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": insights})
}

func (h *InventoryHandler) GetForecast(c *gin.Context) {
	forecast, err := h.service.GetForecast(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": forecast})
}

func (h *InventoryHandler) GetCostBasis(c *gin.Context) {
	method, ok := costing.ParseMethod(c.DefaultQuery("method", string(costing.MethodMoving)))
	if !ok {
		errorResponse(c, http.StatusBadRequest, "unknown costing method: "+c.Query("method"))
		return
	}

	price, err := h.service.GetCostBasis(c.Request.Context(), c.Param("id"), method)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"ingredient_id": c.Param("id"),
		"method":        method,
		"price":         price,
	}})
}

func (h *InventoryHandler) GetEOQ(c *gin.Context) {
	orderingCost := h.engine.OrderingCostIDR
	if raw := strings.TrimSpace(c.Query("ordering_cost")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			errorResponse(c, http.StatusBadRequest, "ordering_cost must be a non-negative number")
			return
		}
		orderingCost = parsed
	}

	holdingRate := h.engine.HoldingRatePerYr
	if raw := strings.TrimSpace(c.Query("holding_rate")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			errorResponse(c, http.StatusBadRequest, "holding_rate must be a non-negative number")
			return
		}
		holdingRate = parsed
	}

	result, err := h.service.GetEOQ(c.Request.Context(), c.Param("id"), orderingCost, holdingRate)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *InventoryHandler) ApplyRecommendedPrice(c *gin.Context) {
	method, ok := costing.ParseMethod(c.DefaultQuery("method", string(costing.MethodMoving)))
	if !ok {
		errorResponse(c, http.StatusBadRequest, "unknown costing method: "+c.Query("method"))
		return
	}

	update, err := h.service.ApplyRecommendedPrice(c.Request.Context(), c.Param("id"), method)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": update})
}

func (h *InventoryHandler) AnalyzeAll(c *gin.Context) {
	results, err := h.service.AnalyzeAll(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (h *InventoryHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.service.GetAlerts(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

func (h *InventoryHandler) GetReorderPlan(c *gin.Context) {
	includeAll := c.Query("all") == "true"

	plan, err := h.service.GetReorderPlan(c.Request.Context(), includeAll)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plan})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}

func handleServiceError(c *gin.Context, err error) {
	var inv *domain.InvariantError
	switch {
	case errors.Is(err, repository.ErrIngredientNotFound):
		errorResponse(c, http.StatusNotFound, "ingredient not found")
	case errors.As(err, &inv):
		errorResponse(c, http.StatusUnprocessableEntity, inv.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
