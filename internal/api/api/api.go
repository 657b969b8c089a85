package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"chessreg/cmd/middleware"
	"chessreg/internal/service"
)

type Routers struct {
	Service   service.Service
	JWTSecret []byte
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	apiGroup.POST("/registrations", r.Service.Register)
	apiGroup.POST("/admin/login", r.Service.AdminLogin)

	adminGroup := apiGroup.Group("", middleware.AdminAuth(r.JWTSecret))
	adminGroup.GET("/registrations", r.Service.List)
	adminGroup.PATCH("/registrations/:id/payment", r.Service.UpdatePaymentStatus)
	adminGroup.GET("/registrations/export", r.Service.Export)
	adminGroup.GET("/stats", r.Service.Stats)

	app.GET("/", func(c *ginext.Context) {
		c.File("./frontend/index.html")
	})
	app.GET("/register", func(c *ginext.Context) {
		c.File("./frontend/register.html")
	})
	app.GET("/admin", func(c *ginext.Context) {
		c.File("./frontend/admin.html")
	})
	app.Static("/frontend", "./frontend")

	return app
}
