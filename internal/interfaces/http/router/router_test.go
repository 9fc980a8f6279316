package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	analytics := NewDomainGroup("analytics", "/analytics")
	analytics.GET("/summary/:period", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("period"))
	})
	health := NewDomainGroup("health", "/health")
	health.GET("", func(c *gin.Context) { c.String(http.StatusOK, "up") })

	r.Register(analytics).RegisterRoot(health)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/analytics/summary/2024-01")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-01", w.Body.String())

	w = serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/health").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("readings", "/readings")
		g.PUT("/purchases", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.POST("/sales", func(c *gin.Context) { c.Status(http.StatusCreated) })
		g.GET("/sales", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPut, "/api/v1/readings/purchases").Code)
		assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/readings/sales").Code)
		assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodGet, "/api/v1/readings/sales").Code)
	})

	t.Run("applies group middleware to subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("analytics", "/analytics").Use(func(c *gin.Context) {
			c.Header("X-Group", "analytics")
			c.Next()
		})
		g.Group("hierarchy", "/hierarchy").GET("/purchase-points", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(&engine.RouterGroup)

		w := serve(engine, http.MethodGet, "/analytics/hierarchy/purchase-points")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "analytics", w.Header().Get("X-Group"))
	})

	t.Run("lists routes with prefixes", func(t *testing.T) {
		g := NewDomainGroup("analytics", "/analytics")
		g.POST("/prorate", func(c *gin.Context) {})
		g.Group("hierarchy", "/hierarchy").GET("/purchase-points/:id", func(c *gin.Context) {})

		assert.Equal(t, []RouteInfo{
			{Method: http.MethodPost, Path: "/analytics/prorate"},
			{Method: http.MethodGet, Path: "/analytics/hierarchy/purchase-points/:id"},
		}, g.Routes())
		assert.Equal(t, "analytics", g.Name())
		assert.Equal(t, "/analytics", g.Prefix())
	})
}
