package server

import (
	"net/http"

	"ordenes-backend/internal/config"
	"ordenes-backend/internal/handlers"
	"ordenes-backend/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the JSON API. Every route is registered through the access
// policy; a route whose endpoint name the policy does not enumerate fails
// the build instead of coming up open.
func NewRouter(cfg *config.Config) (*gin.Engine, error) {
	policy, err := LoadPolicy(cfg.AccessPolicyFile)
	if err != nil {
		return nil, err
	}

	handlers.Configure(cfg)

	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("ordenes_session", store))
	r.Use(middleware.InjectWorker())

	type route struct {
		method  string
		path    string
		name    string
		handler gin.HandlerFunc
	}

	routes := []route{
		{http.MethodGet, "/health", "health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		}},

		{http.MethodPost, "/api/login-operario", "auth.login_operario", handlers.LoginOperario},
		{http.MethodPost, "/api/login-admin", "auth.login_admin", handlers.LoginAdmin},
		{http.MethodPost, "/api/logout", "auth.logout", handlers.Logout},

		{http.MethodGet, "/api/trabajadores", "trabajadores.list", handlers.ListWorkers},

		{http.MethodGet, "/api/ordenes", "ordenes.list", handlers.ListOrders},
		{http.MethodPost, "/api/ordenes", "ordenes.create", handlers.CreateOrder},
		{http.MethodGet, "/api/ordenes/:id", "ordenes.get", handlers.GetOrder},
		{http.MethodPut, "/api/ordenes/:id", "ordenes.update", handlers.UpdateOrder},
		{http.MethodDelete, "/api/ordenes/:id", "ordenes.delete", handlers.DeleteOrder},
		{http.MethodPost, "/api/ordenes/:id/aprobar", "ordenes.aprobar", handlers.ApproveOrder},
		{http.MethodPost, "/api/ordenes/:id/finalizar", "ordenes.finalizar", handlers.FinishOrder},

		{http.MethodGet, "/api/ordenes/:id/actividades", "actividades.list", handlers.ListActivities},
		{http.MethodPost, "/api/ordenes/:id/actividades", "actividades.create", handlers.CreateActivity},
		{http.MethodGet, "/api/actividades/:id", "actividades.get", handlers.GetActivity},
		{http.MethodPut, "/api/actividades/:id", "actividades.update", handlers.UpdateActivity},
		{http.MethodDelete, "/api/actividades/:id", "actividades.delete", handlers.DeleteActivity},
		{http.MethodPost, "/api/actividades/:id/iniciar", "actividades.iniciar", handlers.StartActivity},
		{http.MethodPost, "/api/actividades/:id/pausar", "actividades.pausar", handlers.PauseActivity},
		{http.MethodPost, "/api/actividades/:id/reanudar", "actividades.reanudar", handlers.ResumeActivity},
		{http.MethodPost, "/api/actividades/:id/finalizar", "actividades.finalizar", handlers.FinishActivity},
		{http.MethodGet, "/api/actividades/:id/bitacora", "actividades.bitacora", handlers.ListActivityEvents},

		{http.MethodPost, "/api/ordenes/:id/evidencias", "evidencias.create", handlers.CreateAttachment},
		{http.MethodGet, "/api/ordenes/:id/evidencias", "evidencias.list", handlers.ListAttachments},

		{http.MethodPost, "/api/import", "import.run", handlers.ImportUpload},
		{http.MethodGet, "/api/export", "export.run", handlers.Export},
	}

	for _, rt := range routes {
		guards, err := policy.Guard(rt.name)
		if err != nil {
			return nil, err
		}
		r.Handle(rt.method, rt.path, append(guards, rt.handler)...)
	}

	return r, nil
}
