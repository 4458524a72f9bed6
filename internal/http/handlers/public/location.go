package public

import (
	"time"

	"github.com/vaultpass/internal/cache"
	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/models"

	"github.com/gin-gonic/gin"
)

const locationCacheTTL = time.Minute

// locationView 客户侧领取点视图（不暴露 PIN 相关字段）
type locationView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Slug     string `json:"slug"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}

func toLocationView(location models.Location) locationView {
	return locationView{
		ID:       location.ID,
		Name:     location.Name,
		FullName: location.FullName,
		Slug:     location.Slug,
		Address:  location.Address,
		City:     location.City,
		State:    location.State,
		Zip:      location.Zip,
		Phone:    location.Phone,
	}
}

// GetLocations 列出启用中的领取点。读多写少，短 TTL 缓存，
// 后台改动门店时主动失效。
func (h *Handler) GetLocations(c *gin.Context) {
	ctx := c.Request.Context()

	var cached []locationView
	if hit, err := cache.GetJSON(ctx, constants.CacheKeyActiveLocations, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	locations, err := h.LocationService.ListActive()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "list locations failed", err)
		return
	}
	views := make([]locationView, 0, len(locations))
	for _, location := range locations {
		views = append(views, toLocationView(location))
	}
	if err := cache.SetJSON(ctx, constants.CacheKeyActiveLocations, views, locationCacheTTL); err != nil {
		shared.RequestLog(c).Warnw("cache_locations_failed", "error", err)
	}
	response.Success(c, views)
}
