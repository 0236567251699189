package authz

import (
	"encoding/json"
	"fmt"
	"os"
)

// tableArtifact is the JSON shape of a permission table:
//
//	{
//	  "roles": {
//	    "admin":  {"read": {}, "create": {}, "update": {}, "delete": {}},
//	    "author": {"read": {}, "update": {"ownerOnly": true}}
//	  }
//	}
type tableArtifact struct {
	Roles map[string]map[Operation]Rule `json:"roles"`
}

// Parse builds a table from a JSON artifact.
func Parse(data []byte) (*Table, error) {
	var art tableArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("authz: parse permission table: %w", err)
	}
	if len(art.Roles) == 0 {
		return nil, fmt.Errorf("authz: permission table declares no roles")
	}
	return NewTable(art.Roles)
}

// LoadFile reads a permission table artifact from the local filesystem.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authz: read permission table: %w", err)
	}
	return Parse(data)
}

// Lint reports non-fatal oddities in an artifact: roles without
// operations and operation names outside the standard read/create/
// update/delete set (legal, but worth a second look in a deployment).
func Lint(data []byte) ([]string, error) {
	var art tableArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("authz: parse permission table: %w", err)
	}
	standard := map[Operation]struct{}{
		OpRead: {}, OpCreate: {}, OpUpdate: {}, OpDelete: {},
	}
	var warnings []string
	if len(art.Roles) == 0 {
		warnings = append(warnings, "no roles declared: every request will be denied")
	}
	for role, ops := range art.Roles {
		if len(ops) == 0 {
			warnings = append(warnings, fmt.Sprintf("role %q declares no operations (always denied)", role))
		}
		for op := range ops {
			if _, ok := standard[op]; !ok {
				warnings = append(warnings, fmt.Sprintf("role %q: non-standard operation %q", role, op))
			}
		}
	}
	return warnings, nil
}
