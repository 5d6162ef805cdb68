// Package gate answers exactly one question: is this chat identity an
// administrator. It is a pure membership test with no side effects,
// consulted before every privileged transition.
package gate

// Gate holds the fixed set of privileged chat identities.
type Gate struct {
	admins map[int64]struct{}
}

// New builds a Gate from the configured admin id list.
func New(ids []int64) *Gate {
	admins := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		admins[id] = struct{}{}
	}
	return &Gate{admins: admins}
}

// IsAdmin reports whether the chat identity is privileged.
func (g *Gate) IsAdmin(chatID int64) bool {
	_, ok := g.admins[chatID]
	return ok
}
