package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterOptions configures the outer surfaces of the router.
type RouterOptions struct {
	CORSOrigins    []string
	SwaggerEnabled bool
	SwaggerPath    string
	SpecFile       string
	// MetricsHandler is mounted on /metrics when set.
	MetricsHandler http.Handler
}

// SetupRouter wires every API route.
func SetupRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.Default()

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(opts.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	router.Use(cors.New(corsCfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/session", h.GetSession)
		v1.POST("/session/connect", h.Connect)
		v1.POST("/session/disconnect", h.Disconnect)
		v1.POST("/session/network", h.SwitchNetwork)

		v1.GET("/networks", h.ListNetworks)
		v1.GET("/networks/:chainId", h.GetNetwork)

		v1.GET("/balances/native", h.GetNativeBalance)
		v1.GET("/balances/tokens/:tokenAddress", h.GetTokenBalance)
		v1.GET("/balances/fee-tokens", h.GetFeeTokenBalances)

		v1.POST("/transfers", h.Transfer)
		v1.GET("/fees", h.EstimateFee)

		v1.POST("/identity/link", h.LinkIdentity)
		v1.GET("/identity/profile", h.GetProfile)
		v1.PATCH("/identity/profile", h.UpdateProfile)

		v1.POST("/verifications", h.RunVerification)
		v1.GET("/verifications/latest", h.LatestVerification)
		v1.GET("/records", h.ListRecords)
	}

	router.GET(callbackPath, h.CallbackReady)
	router.POST(callbackPath, h.Callback)

	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	if opts.SwaggerEnabled && opts.SpecFile != "" {
		path := opts.SwaggerPath
		if path == "" {
			path = "/swagger"
		}
		router.StaticFile("/docs/swagger.yaml", opts.SpecFile)
		swaggerURL := ginSwagger.URL("/docs/swagger.yaml")
		router.GET(path+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, swaggerURL))
	}

	return router
}
