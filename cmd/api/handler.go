package api

import (
	"strings"

	authUsecase "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/usecase"
	taskDelivery "github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/delivery"
	taskUsecasePkg "github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/usecase"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	config      *config.Config
	taskHandler *taskDelivery.TaskHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, taskUc taskUsecasePkg.TaskUsecase, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase: authUc,
		config:      cfg,
		taskHandler: taskDelivery.NewTaskHandler(taskUc),
	}
}

// Router builds the gin engine with CORS and every route mounted
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(corsMiddleware(h.config.AllowedOrigins))

	SetupRoutes(r, h.authUsecase, h.taskHandler)
	return r
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	return h.Router().Run(addr)
}

// corsMiddleware echoes the request origin when it is allowed. "*" allows
// every origin.
func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	allowed := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
