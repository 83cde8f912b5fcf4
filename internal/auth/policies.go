package auth

import (
	"fmt"
	"go-pages-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

const (
	actGet     = "^GET$"
	actPost    = "^POST$"
	actGetPost = "^(GET|POST)$"
)

// DefaultPolicies is the baseline rule set. Anonymous visitors can read, search and
// authenticate; members can additionally write pages and comments.
var DefaultPolicies = [][]string{
	{RoleAnonymous, "/", actGet},
	{RoleAnonymous, "/register", actGetPost},
	{RoleAnonymous, "/register/confirm", actGetPost},
	{RoleAnonymous, "/login", actGetPost},
	{RoleAnonymous, "/search", actGetPost},
	{RoleAnonymous, "/page/:id", actGet},
	{RoleAnonymous, "/random", actGet},
	{RoleAnonymous, "/category/:id", actGet},
	{RoleAnonymous, "/profile/:username", actGet},
	{RoleAnonymous, "/api/search", actPost},
	{RoleAnonymous, "/api/pages", actGet},
	{RoleAnonymous, "/api/categories", actGet},
	{RoleAnonymous, "/auth/login", actGet},
	{RoleAnonymous, "/auth/callback", actGet},

	{RoleMember, "/logout", actGet},
	{RoleMember, "/create_page", actGetPost},
	{RoleMember, "/edit_page/:id", actGetPost},
	{RoleMember, "/page/:id", actPost},
}

// SeedDefaultPolicies ensures that the enforcer has the baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		has, err := e.HasPolicy(p)
		if err != nil {
			return fmt.Errorf("failed to check policy %v: %w", p, err)
		}
		if has {
			continue
		}
		if _, err := e.AddPolicy(p); err != nil {
			return fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}

	if has, _ := e.HasRoleForUser(RoleMember, RoleAnonymous); !has {
		if _, err := e.AddRoleForUser(RoleMember, RoleAnonymous); err != nil {
			return fmt.Errorf("failed to add role %q -> %q: %w", RoleMember, RoleAnonymous, err)
		}
	}
	log.Info("Policy seeding complete.")
	return nil
}
