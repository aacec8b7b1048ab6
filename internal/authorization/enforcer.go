package authorization

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const ObjectConsumption = "consumption"

const (
	ActionConsumptionView   = "view"
	ActionConsumptionCreate = "create"
	ActionConsumptionUpdate = "update"
	ActionConsumptionDelete = "delete"
)

var writeActions = []string{ActionConsumptionCreate, ActionConsumptionUpdate, ActionConsumptionDelete}

// roleGrants lists the consumption actions each role subject may perform.
var roleGrants = map[string][]string{
	"role:readonly": {ActionConsumptionView},
	"role:user":     append([]string{ActionConsumptionView}, writeActions...),
	"role:admin":    append([]string{ActionConsumptionView}, writeActions...),
	"role:system":   append([]string{ActionConsumptionView}, writeActions...),
}

// NewEnforcer loads policies persisted in casbin_rule and seeds the role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	steps := []func() error{
		enforcer.LoadPolicy,
		func() error { return grantRoles(enforcer) },
		enforcer.BuildRoleLinks,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return enforcer, nil
}

func grantRoles(enforcer *casbin.SyncedEnforcer) error {
	var missing [][]string
	for role, actions := range roleGrants {
		for _, action := range actions {
			rule := []string{role, ObjectConsumption, action}
			has, err := enforcer.HasPolicy(rule)
			if err != nil {
				return err
			}
			if !has {
				missing = append(missing, rule)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	_, err := enforcer.AddPolicies(missing)
	return err
}
