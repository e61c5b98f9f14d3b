package server

import (
	_ "embed"
	"fmt"
	"os"

	"ordenes-backend/internal/middleware"
	"ordenes-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// The access policy enumerates, per named endpoint, who may call it. There
// is no blanket allow-any default: an endpoint missing from the policy does
// not come up.
//
//go:embed policy.yaml
var defaultPolicy []byte

// rolePublic marks an endpoint that needs no session at all.
const rolePublic = "public"

type Policy struct {
	Endpoints map[string][]string `yaml:"endpoints"`
}

// LoadPolicy reads the policy from path, or the embedded default when path
// is empty.
func LoadPolicy(path string) (*Policy, error) {
	data := defaultPolicy
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read access policy: %w", err)
		}
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse access policy: %w", err)
	}
	if len(p.Endpoints) == 0 {
		return nil, fmt.Errorf("access policy has no endpoints")
	}
	for name, roles := range p.Endpoints {
		if len(roles) == 0 {
			return nil, fmt.Errorf("access policy: endpoint %s has no roles", name)
		}
		for _, r := range roles {
			switch r {
			case rolePublic, string(models.RoleAdmin), string(models.RoleOperario):
			default:
				return nil, fmt.Errorf("access policy: endpoint %s: unknown role %q", name, r)
			}
		}
	}
	return &p, nil
}

// Guard returns the middleware chain for a named endpoint. Unknown names
// are a configuration error surfaced at router build time.
func (p *Policy) Guard(name string) ([]gin.HandlerFunc, error) {
	roles, ok := p.Endpoints[name]
	if !ok {
		return nil, fmt.Errorf("access policy: endpoint %s not enumerated", name)
	}
	if len(roles) == 1 && roles[0] == rolePublic {
		return nil, nil
	}
	workerRoles := make([]models.WorkerRole, 0, len(roles))
	for _, r := range roles {
		workerRoles = append(workerRoles, models.WorkerRole(r))
	}
	return []gin.HandlerFunc{
		middleware.RequireAuth(),
		middleware.RequireRole(workerRoles...),
	}, nil
}
