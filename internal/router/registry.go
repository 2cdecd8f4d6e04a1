package router

import "github.com/gin-gonic/gin"

// Registry collects modules and mounts them once the global middleware is in place.
type Registry struct {
	Engine *gin.Engine
	API    *gin.RouterGroup

	api  []Module
	root []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Add queues modules served under /api.
func (r *Registry) Add(mods ...Module) {
	r.api = append(r.api, mods...)
}

// AddRoot queues modules served outside /api, such as /debug/vars.
func (r *Registry) AddRoot(mods ...Module) {
	r.root = append(r.root, mods...)
}

func (r *Registry) RegisterAll() {
	for _, m := range r.api {
		m.Register(r.API)
	}
	for _, m := range r.root {
		m.Register(&r.Engine.RouterGroup)
	}
}
