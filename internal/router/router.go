package router

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/authz"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/metrics"
)

// Deps are the handlers mounted by RegisterRoutes.
type Deps struct {
	Admin     *admin.Handler
	Catalog   *catalog.Handler
	Auth      *authz.Middleware
	LoginRate string
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) (http.Handler, error) {
	mux := http.NewServeMux()
	limit, err := RateLimiter(d.LoginRate)
	if err != nil {
		return nil, err
	}
	admins := func(h http.HandlerFunc) http.Handler { return d.Auth.Admin(h) }
	members := func(h http.HandlerFunc) http.Handler { return d.Auth.Member(h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// admin session
	mux.Handle("POST /admin/login", limit(http.HandlerFunc(d.Admin.Login)))
	mux.Handle("POST /admin/refresh", limit(http.HandlerFunc(d.Admin.Refresh)))
	mux.HandleFunc("POST /admin/logout", d.Admin.Logout)
	mux.Handle("GET /admin/me", members(d.Admin.Me))
	mux.Handle("GET /admin/{$}", admins(d.Admin.Find))
	mux.Handle("POST /admin/verify", limit(http.HandlerFunc(d.Admin.Verify)))
	mux.Handle("POST /admin/code", admins(d.Admin.IssueCode))

	// catalog proxy; reads are public, writes need an admin
	mux.HandleFunc("GET /category", d.Catalog.ListCategories)
	mux.Handle("POST /category", admins(d.Catalog.CreateCategory))
	mux.Handle("PATCH /category", admins(d.Catalog.UpdateCategory))
	mux.Handle("DELETE /category", admins(d.Catalog.DeleteCategory))
	mux.HandleFunc("GET /product", d.Catalog.ListProducts)
	mux.Handle("POST /product", admins(d.Catalog.CreateProduct))
	mux.Handle("PATCH /product", admins(d.Catalog.UpdateProduct))
	mux.Handle("DELETE /product", admins(d.Catalog.DeleteProduct))

	// metrics must see the request the mux annotates with its pattern
	var handler http.Handler = metrics.Middleware(mux)
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler, nil
}
