package routes

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/tubemap/backend/internal/server/middleware"
	"github.com/tubemap/backend/pkg/logger"
)

// GetClustersHandler returns the most recent clustering result.
func GetClustersHandler(c echo.Context) error {
	st := c.(*middleware.AppContext).App.Store

	result, err := st.LoadClusters()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"message": "No cluster result available",
			})
		}
		logger.Error("Failed to load cluster result", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// GetClusterNamesHandler returns just the generated names and metadata of the
// most recent result, for clients that do not need the full channel listing.
func GetClusterNamesHandler(c echo.Context) error {
	type clusterNamesResponse struct {
		Algorithm    string            `json:"algorithm"`
		NClusters    int               `json:"n_clusters"`
		ClusterNames map[string]string `json:"cluster_names"`
	}

	st := c.(*middleware.AppContext).App.Store

	result, err := st.LoadClusters()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"message": "No cluster result available",
			})
		}
		logger.Error("Failed to load cluster result", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, clusterNamesResponse{
		Algorithm:    result.Algorithm,
		NClusters:    result.NClusters,
		ClusterNames: result.ClusterNames,
	})
}
