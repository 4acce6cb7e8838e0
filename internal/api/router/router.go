package router

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/media-uniquer/internal/api/handlers/task"
	"github.com/aliskhannn/media-uniquer/internal/middleware"
)

func Setup(h *task.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	metrics := promhttp.Handler()

	api := r.Group("/")

	api.POST("/upload", h.Upload)        // submitting a media url
	api.GET("/status/:id", h.Status)     // polling task status
	api.GET("/download/:id", h.Download) // fetching the processed file
	api.GET("/health", h.Health)
	api.GET("/metrics", func(c *ginext.Context) {
		metrics.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
