package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/domain/geometry"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
)

// highlight links carry at most this many keys
const maxCoordinateKeys = 5000

// PropertyHandler property boundary, client config and cell lookups
type PropertyHandler struct {
	property     *geometry.Property
	clientConfig model.ClientConfigResponse
}

func NewPropertyHandler(property *geometry.Property, clientConfig model.ClientConfigResponse) *PropertyHandler {
	return &PropertyHandler{property: property, clientConfig: clientConfig}
}

// GetProperty GET /api/property
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	c.JSON(http.StatusOK, model.PropertyResponse{
		Boundary:          h.property.FeatureCollection(),
		Bounds:            h.property.Bounds(),
		Center:            h.property.Center(),
		TotalSquareMeters: h.property.AreaSquareMeters(),
	})
}

// GetConfig GET /api/config
func (h *PropertyHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.clientConfig)
}

// GetCellCoordinates GET /api/cells/coordinates?keys=k1,k2
func (h *PropertyHandler) GetCellCoordinates(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("keys"))
	if raw == "" {
		respondError(c, "keys parameter is required", &ValidationError{Field: "keys", Message: "required"})
		return
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxCoordinateKeys {
		respondError(c, "too many keys", &ValidationError{Field: "keys", Message: "too many keys"})
		return
	}

	resp := model.CellCoordinatesResponse{Cells: make(map[model.CellKey]model.LatLng, len(parts))}
	for _, part := range parts {
		key := model.CellKey(strings.TrimSpace(part))
		if key == "" {
			continue
		}
		at, err := geometry.CellCenter(key)
		if err != nil {
			resp.Invalid = append(resp.Invalid, string(key))
			continue
		}
		resp.Cells[key] = at
	}
	c.JSON(http.StatusOK, resp)
}
