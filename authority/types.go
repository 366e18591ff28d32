package authority

import (
	"bytes"
	"encoding/json"

	"github.com/jrsteele09/go-tab-session/location"
)

// Guards name the realm a session was issued for.
const (
	GuardAdmin    = "admin"
	GuardCustomer = "customer"
)

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Location *location.Info `json:"location,omitempty"`
	UserType string         `json:"user_type,omitempty"`
}

// LoginResponse is the success body of POST /login.
type LoginResponse struct {
	Token        string `json:"token"`
	Guard        string `json:"guard"`
	User         User   `json:"user"`
	TabSessionID string `json:"tab_session_id,omitempty"`
}

// ID accepts both numeric and string identifiers on the wire.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// User is the profile the authority returns for a session.
type User struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email"`
	UserType    string   `json:"user_type,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}
