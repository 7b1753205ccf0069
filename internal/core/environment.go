package core

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Environment is the deployment stage the server runs in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

func (e Environment) IsProduction() bool {
	return e == Production
}

// GinMode maps the environment onto the router's run mode.
func (e Environment) GinMode() string {
	switch e {
	case Production, Staging:
		return gin.ReleaseMode
	case Testing:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// ParseEnvironment accepts the common short forms ("prod", "dev", "test")
// as well as the full names. Anything else is Development.
func ParseEnvironment(v string) Environment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}
