package handler

import (
	"net/http"
	"strconv"

	"github.com/chayanin/tripvote-service/pkg/places"
	"github.com/labstack/echo/v4"
)

// PlaceHandler is a thin pass-through to the place catalog provider; the
// voting core never interprets the records it returns.
type PlaceHandler struct {
	client *places.Client
}

func NewPlaceHandler(client *places.Client) *PlaceHandler {
	return &PlaceHandler{client: client}
}

func (h *PlaceHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/places", h.SearchPlaces)
}

func (h *PlaceHandler) SearchPlaces(c echo.Context) error {
	opts := places.SearchOptions{
		Filter: c.QueryParam("filter"),
		City:   c.QueryParam("city"),
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		opts.Limit = n
	}
	if latStr, lngStr := c.QueryParam("lat"), c.QueryParam("lng"); latStr != "" && lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid lat")
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid lng")
		}
		opts.Center = &places.LatLng{Lat: lat, Lng: lng}
	}
	if v := c.QueryParam("radius"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid radius")
		}
		opts.Radius = r
	}

	found, err := h.client.Search(c.Request().Context(), opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"places":  found,
		"total":   len(found),
	})
}
