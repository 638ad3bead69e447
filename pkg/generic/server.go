package generic

import "github.com/gin-gonic/gin"

// Server carries the router of the read-only query surface.
type Server struct {
	Router *gin.Engine
	Port   string
}
