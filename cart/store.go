package cart

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func init() {
	gob.Register(map[string]int{})
}

// Store loads and writes the cart for the current request.
type Store interface {
	Load(c *gin.Context) State
	Put(c *gin.Context, s State)
	Clear(c *gin.Context)
}

// SessionStore keeps the cart in the signed session cookie. Changes are
// written when the session is saved.
type SessionStore struct {
	Key string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{Key: "cart"}
}

func (st *SessionStore) Load(c *gin.Context) State {
	raw := sessions.Default(c).Get(st.Key)
	switch v := raw.(type) {
	case map[string]int:
		return State(v).Clone()
	case State:
		return v.Clone()
	default:
		return New()
	}
}

func (st *SessionStore) Put(c *gin.Context, s State) {
	session := sessions.Default(c)
	if len(s) == 0 {
		session.Delete(st.Key)
		return
	}
	session.Set(st.Key, map[string]int(s.Clone()))
}

func (st *SessionStore) Clear(c *gin.Context) {
	sessions.Default(c).Delete(st.Key)
}
