package v1

import (
	"github.com/gin-gonic/gin"

	"qc-vision/backend/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under the /api/v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api/v1")

	tests := group.Group("/tests")
	tests.POST("", r.handlers.Tests.Create)
	tests.GET("", r.handlers.Tests.List)
	tests.GET("/:id", r.handlers.Tests.Get)
	tests.PATCH("/:id", r.handlers.Tests.Update)
	tests.DELETE("/:id", r.handlers.Tests.Delete)
	tests.POST("/:id/review", r.handlers.Tests.Review)

	photos := group.Group("/photos")
	photos.POST("/upload", r.handlers.Photos.Upload)
	photos.GET("/gallery", r.handlers.Photos.Gallery)
	photos.GET("/test/:id", r.handlers.Photos.ListForTest)
	photos.GET("/:id/url", r.handlers.Photos.PresignURL)
	photos.GET("/:id/image", r.handlers.Photos.Image)
	photos.DELETE("/:id", r.handlers.Photos.Delete)

	defects := group.Group("/defects")
	defects.GET("/categories", r.handlers.Defects.ListCategories)
	defects.POST("/photo/:id", r.handlers.Defects.Create)
	defects.GET("/photo/:id", r.handlers.Defects.ListForPhoto)
	defects.GET("/:id", r.handlers.Defects.Get)
	defects.PUT("/:id", r.handlers.Defects.Update)
	defects.DELETE("/:id", r.handlers.Defects.Delete)
	defects.POST("/:id/annotations", r.handlers.Defects.AddAnnotation)
	defects.PUT("/annotations/:id", r.handlers.Defects.UpdateAnnotation)
	defects.DELETE("/annotations/:id", r.handlers.Defects.DeleteAnnotation)
	defects.POST("/:id/review", r.handlers.Defects.Review)

	auditGroup := group.Group("/audit")
	auditGroup.GET("/logs", r.handlers.Audit.List)
	auditGroup.GET("/logs/:id", r.handlers.Audit.Get)

	users := group.Group("/users")
	users.GET("/me", r.handlers.Users.Me)
}
