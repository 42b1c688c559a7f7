package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/tubemap/backend/internal/queue"
	"github.com/tubemap/backend/internal/server/middleware"
	"github.com/tubemap/backend/pkg/cluster"
	"github.com/tubemap/backend/pkg/logger"
)

// CreateRunHandler enqueues a clustering run for the worker.
func CreateRunHandler(c echo.Context) error {
	type createRunBody struct {
		Algorithm  string  `json:"algorithm" validate:"omitempty,oneof=kmeans dbscan"`
		NClusters  int     `json:"n_clusters" validate:"omitempty,gte=2"`
		Weight     float64 `json:"weight" validate:"gte=0,lte=1"`
		AutoK      bool    `json:"auto_k"`
		AutoWeight bool    `json:"auto_weight"`
		Seed       int64   `json:"seed"`
	}

	type createRunResponse struct {
		Message string `json:"message"`
		RunID   string `json:"run_id,omitempty"`
	}

	data := new(createRunBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: "Invalid request body",
		})
	}
	if data.Algorithm != "" {
		if _, err := cluster.ParseAlgorithm(data.Algorithm); err != nil {
			return c.JSON(http.StatusBadRequest, createRunResponse{
				Message: err.Error(),
			})
		}
	}

	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createRunResponse{
			Message: "Internal server error",
		})
	}

	job := queue.RunJob{
		RunID:      runID,
		Algorithm:  data.Algorithm,
		NClusters:  data.NClusters,
		Weight:     data.Weight,
		AutoK:      data.AutoK,
		AutoWeight: data.AutoWeight,
		Seed:       data.Seed,
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishRun(ch, job); err != nil {
		logger.Error("Failed to publish run job", "run_id", runID, "err", err)
		return c.JSON(http.StatusInternalServerError, createRunResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createRunResponse{
		Message: "Run enqueued",
		RunID:   runID,
	})
}
