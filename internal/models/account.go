package models

import (
	"fmt"
	"strings"
)

// Role decides which capabilities of a session are exercised.
type Role string

const (
	RoleMaster   Role = "master"
	RoleFollower Role = "follower"
)

// ParseRole converts a configured role name.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleMaster:
		return RoleMaster, nil
	case RoleFollower:
		return RoleFollower, nil
	}
	return "", fmt.Errorf("unknown account role %q", s)
}

// Account is a broker credential bound to a role.
type Account struct {
	Name  string
	Token string
	Role  Role
}

// MaskedToken returns the first five characters of the token, for logs.
func (a Account) MaskedToken() string {
	if len(a.Token) <= 5 {
		return a.Token + "..."
	}
	return a.Token[:5] + "..."
}

// Symbol is a tradable instrument from the symbol table.
type Symbol struct {
	Name       string  `json:"name"`
	BaseStake  float64 `json:"base_stake"`
	Multiplier float64 `json:"multiplier"`
	Class      string  `json:"class"`
}
