package admin

import (
	"strconv"

	"github.com/vaultpass/internal/cache"
	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// locationRequest 创建/更新领取点请求，PIN 字段非空时轮换
type locationRequest struct {
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	Slug      string `json:"slug"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
	Active    *bool  `json:"active"`
	SortOrder *int   `json:"sort_order"`
	StaffPin  string `json:"staff_pin"`
	AdminPin  string `json:"admin_pin"`
}

func (r locationRequest) toInput() service.LocationInput {
	return service.LocationInput{
		Name:      r.Name,
		FullName:  r.FullName,
		Slug:      r.Slug,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		Zip:       r.Zip,
		Phone:     r.Phone,
		Active:    r.Active,
		SortOrder: r.SortOrder,
		StaffPin:  r.StaffPin,
		AdminPin:  r.AdminPin,
	}
}

// ListLocations 含停用门店的全量领取点列表
func (h *Handler) ListLocations(c *gin.Context) {
	locations, err := h.LocationService.ListAll()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "list locations failed", err)
		return
	}
	response.Success(c, locations)
}

// GetLocation 查看单个领取点
func (h *Handler) GetLocation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid location id", err)
		return
	}
	location, err := h.LocationService.Get(uint(id))
	if err != nil {
		respondWithMappedError(c, err, locationErrorRules, response.CodeInternal, "get location failed")
		return
	}
	response.Success(c, location)
}

// CreateLocation 新建领取点
func (h *Handler) CreateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		shared.RespondError(c, response.CodeBadRequest, "location name required", nil)
		return
	}

	location, err := h.LocationService.Create(req.toInput())
	if err != nil {
		respondWithMappedError(c, err, locationErrorRules, response.CodeInternal, "create location failed")
		return
	}
	invalidateLocationCache(c)
	response.Success(c, location)
}

// UpdateLocation 更新领取点，含启停与 PIN 轮换
func (h *Handler) UpdateLocation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid location id", err)
		return
	}
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	location, err := h.LocationService.Update(uint(id), req.toInput())
	if err != nil {
		respondWithMappedError(c, err, locationErrorRules, response.CodeInternal, "update location failed")
		return
	}
	invalidateLocationCache(c)
	response.Success(c, location)
}

// invalidateLocationCache 门店变更后清掉客户侧列表缓存
func invalidateLocationCache(c *gin.Context) {
	if err := cache.Del(c.Request.Context(), constants.CacheKeyActiveLocations); err != nil {
		shared.RequestLog(c).Warnw("invalidate_location_cache_failed", "error", err)
	}
}
