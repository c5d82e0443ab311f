package contracts

import "github.com/julienschmidt/httprouter"

// Handler is a module that mounts its routes on a shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// NewRouter returns a router with every handler mounted, in order.
func NewRouter(handlers ...Handler) *httprouter.Router {
	router := httprouter.New()
	router.RedirectTrailingSlash = false
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
	return router
}
