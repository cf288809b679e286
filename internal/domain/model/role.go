package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ユーザーのロール（DBには数値で保存）
type Role int

const (
	RoleDeveloper      Role = 1
	RoleTeamLead       Role = 2
	RoleProjectManager Role = 3
	RoleProductOwner   Role = 4
	RoleScrumMaster    Role = 5
	RoleTester         Role = 6
)

// 新規登録時のロール（一番権限が低い）
const DefaultRole = RoleDeveloper

var roleNames = map[Role]string{
	RoleDeveloper:      "Developer",
	RoleTeamLead:       "TeamLead",
	RoleProjectManager: "ProjectManager",
	RoleProductOwner:   "ProductOwner",
	RoleScrumMaster:    "ScrumMaster",
	RoleTester:         "Tester",
}

// 全ロール
func AllRoles() []Role {
	return []Role{
		RoleDeveloper,
		RoleTeamLead,
		RoleProjectManager,
		RoleProductOwner,
		RoleScrumMaster,
		RoleTester,
	}
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

// ParseRole はロール名（大文字小文字は無視）を解釈する。リクエストの入力用
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for r, name := range roleNames {
		if strings.EqualFold(name, s) {
			return r, true
		}
	}
	return 0, false
}

// RoleByName は名前の完全一致だけを受け付ける（JWTのroleクレーム用）
func RoleByName(name string) (Role, bool) {
	for r, n := range roleNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// RoleFromInt はパスパラメータの数値ロールを解釈する。
func RoleFromInt(i int) (Role, bool) {
	r := Role(i)
	return r, r.Valid()
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role: %d", int(r))
	}
	return json.Marshal(r.String())
}

// 名前でも数値でも受け付ける
func (r *Role) UnmarshalJSON(b []byte) error {
	v, err := parseEnumJSON(b, func(s string) (int, bool) {
		role, ok := ParseRole(s)
		return int(role), ok
	})
	if err != nil {
		return fmt.Errorf("role: %w", err)
	}
	role := Role(v)
	if !role.Valid() {
		return fmt.Errorf("role: unknown value %d", v)
	}
	*r = role
	return nil
}
