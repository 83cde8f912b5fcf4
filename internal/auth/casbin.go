package auth

import (
	"fmt"
	"go-pages-app/internal/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// Roles used as Casbin subjects. Members inherit every anonymous permission.
const (
	RoleAnonymous = "anonymous"
	RoleMember    = "member"
)

// modelText is an RBAC model with wildcard path matching and regex method matching.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// NewEnforcer creates a Casbin enforcer whose policies are stored in the application database
// through the sqlx adapter, and loads the current policy set.
//
// Parameters:
//   - cfg: The database settings. cfg.Driver (e.g., "sqlite3" or "mysql") and cfg.DSN
//     are handed to the adapter, which keeps its rules in the "casbin_rule" table.
//
// Returns a fully configured Casbin enforcer or an error if setup fails.
func NewEnforcer(cfg config.DBConfig) (*casbin.Enforcer, error) {
	// Initialize the database adapter so policies live next to the application data.
	opts := &sqlxadapter.AdapterOptions{
		DriverName:     cfg.Driver,
		DataSourceName: cfg.DSN,
		TableName:      "casbin_rule",
	}
	adapter := sqlxadapter.NewAdapterFromOptions(opts)

	// Parse the embedded RBAC model.
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	// keyMatch2 matches wildcard paths such as "/page/:id" against "/page/7".
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	// Load the stored policy set. An empty table is seeded later by SeedDefaultPolicies.
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer creates an enforcer without persistence, seeded with the default policies.
// It backs handler and middleware tests that do not need a database.
func NewMemoryEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	// Without an adapter the policies only exist in memory.
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	if err := SeedDefaultPolicies(enforcer, nil); err != nil {
		return nil, err
	}
	return enforcer, nil
}
