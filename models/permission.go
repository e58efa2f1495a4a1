package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// adminInputSentinel is how AdminOnly is stored and sent over the wire.
const adminInputSentinel = "admin"

type PermissionKind int

const (
	PermissionNone PermissionKind = iota
	PermissionAdminOnly
	PermissionTeam
)

// InputPermission decides who may submit a match result: nobody, only an
// administrator, or one specific team. The zero value is PermissionNone.
type InputPermission struct {
	kind   PermissionKind
	teamID uuid.UUID
}

func NoInput() InputPermission {
	return InputPermission{kind: PermissionNone}
}

func AdminOnlyInput() InputPermission {
	return InputPermission{kind: PermissionAdminOnly}
}

func TeamInput(teamID uuid.UUID) InputPermission {
	return InputPermission{kind: PermissionTeam, teamID: teamID}
}

func (p InputPermission) Kind() PermissionKind {
	return p.kind
}

// TeamID returns the allowed team; ok is false unless Kind is PermissionTeam.
func (p InputPermission) TeamID() (id uuid.UUID, ok bool) {
	return p.teamID, p.kind == PermissionTeam
}

func (p InputPermission) String() string {
	switch p.kind {
	case PermissionAdminOnly:
		return adminInputSentinel
	case PermissionTeam:
		return p.teamID.String()
	default:
		return "none"
	}
}

// ParseInputPermission reads the storage form: "" means none, "admin" means admin only,
// anything else must be a team UUID.
func ParseInputPermission(s string) (InputPermission, error) {
	switch s {
	case "":
		return NoInput(), nil
	case adminInputSentinel:
		return AdminOnlyInput(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return InputPermission{}, fmt.Errorf("invalid input permission %q: %w", s, err)
	}
	return TeamInput(id), nil
}

func (p InputPermission) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PermissionAdminOnly:
		return json.Marshal(adminInputSentinel)
	case PermissionTeam:
		return json.Marshal(p.teamID.String())
	default:
		return []byte("null"), nil
	}
}

func (p *InputPermission) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = NoInput()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("input permission must be null, %q or a team id", adminInputSentinel)
	}
	if s == "" {
		return fmt.Errorf("input permission must be null, %q or a team id", adminInputSentinel)
	}
	parsed, err := ParseInputPermission(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p InputPermission) Value() (driver.Value, error) {
	switch p.kind {
	case PermissionAdminOnly:
		return adminInputSentinel, nil
	case PermissionTeam:
		return p.teamID.String(), nil
	default:
		return nil, nil
	}
}

func (p *InputPermission) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = NoInput()
		return nil
	case string:
		parsed, err := ParseInputPermission(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []byte:
		return p.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into InputPermission", src)
	}
}
