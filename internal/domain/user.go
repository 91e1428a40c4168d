// Package domain contains core domain types for the ERP assistant.
package domain

// User identifies who is talking to the bot on a given transport.
type User struct {
	ID        string `json:"id"`
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// DisplayName returns the friendliest available name.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "utilisateur"
}

// SessionKey scopes the user id by channel. Transports assign ids
// independently, so the same id on two channels is two people.
func (u User) SessionKey() string {
	return u.Channel + ":" + u.ID
}
