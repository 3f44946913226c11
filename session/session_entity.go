package session

import (
	"context"
	"time"

	"flowform/authority"

	"github.com/fundwit/go-commons/types"
)

type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`

	SigningTime time.Time `json:"-"`

	// request-scoped context for trace propagation, never serialized
	Context context.Context `json:"-"`
}

type Identity struct {
	ID       types.ID       `json:"id"`
	Name     string         `json:"name"`
	Nickname string         `json:"nickname"`
	Role     authority.Role `json:"role"`
}

func (s Session) Clone() Session {
	return Session{Token: s.Token, Identity: s.Identity, SigningTime: s.SigningTime}
}
