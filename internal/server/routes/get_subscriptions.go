package routes

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/tubemap/backend/internal/server/middleware"
	"github.com/tubemap/backend/pkg/channel"
	"github.com/tubemap/backend/pkg/logger"
)

// GetSubscriptionsHandler returns the stored subscription list.
func GetSubscriptionsHandler(c echo.Context) error {
	type subscriptionsResponse struct {
		Count         int               `json:"count"`
		Subscriptions []*channel.Record `json:"subscriptions"`
	}

	st := c.(*middleware.AppContext).App.Store

	records, err := st.LoadSubscriptions()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"message": "No subscriptions stored",
			})
		}
		logger.Error("Failed to load subscriptions", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, subscriptionsResponse{
		Count:         len(records),
		Subscriptions: records,
	})
}

// PutSubscriptionsHandler replaces the stored subscription list.
func PutSubscriptionsHandler(c echo.Context) error {
	type putSubscriptionsBody struct {
		Subscriptions []*channel.Record `json:"subscriptions" validate:"required,min=1,dive,required"`
	}

	data := new(putSubscriptionsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Invalid request body",
		})
	}
	for _, rec := range data.Subscriptions {
		if rec.ChannelID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"message": "Every subscription needs a channel_id",
			})
		}
	}

	st := c.(*middleware.AppContext).App.Store
	if err := st.SaveSubscriptions(data.Subscriptions); err != nil {
		logger.Error("Failed to save subscriptions", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Subscriptions saved",
		"count":   len(data.Subscriptions),
	})
}
