package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/tubemap/backend/internal/storage"
	"github.com/tubemap/backend/internal/store"
)

type App struct {
	Store   *store.Store
	Queue   *amqp091.Channel
	Archive *storage.Archive
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(st *store.Store, queue *amqp091.Channel, archive *storage.Archive) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				Store:   st,
				Queue:   queue,
				Archive: archive,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
