package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "transcoding-api-service",
		})
	})

	transcodingHandler := handler.NewTranscodingHandler(deps)

	// Live progress stream
	r.GET("/ws", transcodingHandler.Live)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		transcoding := v1.Group("/transcoding")
		{
			// POST /api/v1/transcoding/presignedUrl - Create a job and get an upload URL
			transcoding.POST("/presignedUrl", transcodingHandler.PresignedUpload)

			// GET /api/v1/transcoding - List the caller's jobs
			transcoding.GET("", transcodingHandler.ListJobs)

			// GET /api/v1/transcoding/:job_id - Get job details with logs
			transcoding.GET("/:job_id", transcodingHandler.GetJob)

			// PUT /api/v1/transcoding/status/:job_id - Update job status (cancel)
			transcoding.PUT("/status/:job_id", transcodingHandler.UpdateStatus)

			// GET /api/v1/transcoding/:job_id/download - Get a download URL for an output
			transcoding.GET("/:job_id/download", transcodingHandler.Download)

			// DELETE /api/v1/transcoding/:job_id - Delete a finished job
			transcoding.DELETE("/:job_id", transcodingHandler.DeleteJob)
		}
	}

	return r
}
