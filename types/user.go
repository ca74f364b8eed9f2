package types

import (
	"strings"
	"time"
)

// User represents a HeroVerse account.
// It contains identity, public profile data, and the set of users
// subscribed to this account.
type User struct {
	// ID is the opaque unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Name is the user's display name, usually "First Last".
	Name string `json:"name" db:"name"`

	// Nickname is the public hero alias.
	Nickname string `json:"nickname" db:"nickname"`

	// Description is free-form biography text.
	Description string `json:"description" db:"description"`

	// Power is the ordered list of power tags shown on the profile.
	Power []string `json:"power" db:"power"`

	// IsActive marks whether the profile is active.
	IsActive bool `json:"isActive" db:"is_active"`

	// Avatar is the public URI of the avatar image, or empty.
	Avatar string `json:"avatar" db:"avatar"`

	// Subscribers holds the ids of users subscribed to this user, in
	// insertion order. It never contains the user's own id.
	Subscribers []string `json:"subscribers" db:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent profile update.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SubscriptionsAmount is the number of subscribers. It is always derived
// from Subscribers and never stored.
func (u User) SubscriptionsAmount() int {
	return len(u.Subscribers)
}

// HasSubscriber reports whether id is present in the subscriber set.
func (u User) HasSubscriber(id string) bool {
	for _, sub := range u.Subscribers {
		if sub == id {
			return true
		}
	}
	return false
}

// Account is the full user record returned to its owner, plus derived counts.
type Account struct {
	User
	SubscriptionsAmount int `json:"subscriptionsAmount"`
}

// NewAccount builds the Account view of a user.
func NewAccount(u User) Account {
	if u.Subscribers == nil {
		u.Subscribers = []string{}
	}
	if u.Power == nil {
		u.Power = []string{}
	}
	return Account{User: u, SubscriptionsAmount: u.SubscriptionsAmount()}
}

// Profile is the public-facing subset of a user record.
type Profile struct {
	ID                  string   `json:"id"`
	Username            string   `json:"username"`
	Name                string   `json:"name"`
	Nickname            string   `json:"nickname"`
	Description         string   `json:"description"`
	Power               []string `json:"power"`
	IsActive            bool     `json:"isActive"`
	Avatar              string   `json:"avatar"`
	SubscriptionsAmount int      `json:"subscriptionsAmount"`
}

// NewProfile strips credential material and subscriber ids from a user.
func NewProfile(u User) Profile {
	power := u.Power
	if power == nil {
		power = []string{}
	}
	return Profile{
		ID:                  u.ID,
		Username:            u.Username,
		Name:                u.Name,
		Nickname:            u.Nickname,
		Description:         u.Description,
		Power:               power,
		IsActive:            u.IsActive,
		Avatar:              u.Avatar,
		SubscriptionsAmount: u.SubscriptionsAmount(),
	}
}

// SubscriberSummary is the card shown for each entry of a subscriber listing.
type SubscriberSummary struct {
	ID                  string   `json:"id"`
	Avatar              string   `json:"avatar"`
	Nickname            string   `json:"nickname"`
	SubscriptionsAmount int      `json:"subscriptionsAmount"`
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	IsActive            bool     `json:"isActive"`
	Power               []string `json:"power"`
	Description         string   `json:"description"`
}

// NewSubscriberSummary renders a subscriber card, splitting the display name.
func NewSubscriberSummary(u User) SubscriberSummary {
	first, last := SplitName(u.Name)
	power := u.Power
	if power == nil {
		power = []string{}
	}
	return SubscriberSummary{
		ID:                  u.ID,
		Avatar:              u.Avatar,
		Nickname:            u.Nickname,
		SubscriptionsAmount: u.SubscriptionsAmount(),
		FirstName:           first,
		LastName:            last,
		IsActive:            u.IsActive,
		Power:               power,
		Description:         u.Description,
	}
}

// SplitName splits a display name on single spaces. Only the first two
// tokens are used; any further tokens are dropped.
func SplitName(name string) (first, last string) {
	parts := strings.Split(name, " ")
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}

// ProfileFilter narrows a profile search. Empty fields match everything.
type ProfileFilter struct {
	Nickname string
	Power    string
}

// Matches reports whether u satisfies the filter. Both fields are
// case-insensitive substring matches; Power matches against any tag.
func (f ProfileFilter) Matches(u User) bool {
	if f.Nickname != "" && !containsFold(u.Nickname, f.Nickname) {
		return false
	}
	if f.Power == "" {
		return true
	}
	for _, tag := range u.Power {
		if containsFold(tag, f.Power) {
			return true
		}
	}
	return false
}

// Normalized trims both filter fields and lowers their case.
func (f ProfileFilter) Normalized() ProfileFilter {
	return ProfileFilter{
		Nickname: strings.ToLower(strings.TrimSpace(f.Nickname)),
		Power:    strings.ToLower(strings.TrimSpace(f.Power)),
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ProfilePatch carries a partial profile update. Nil fields are left as-is.
type ProfilePatch struct {
	Name        *string   `json:"name"`
	Nickname    *string   `json:"nickname"`
	Description *string   `json:"description"`
	Power       *[]string `json:"power"`
	IsActive    *bool     `json:"isActive"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Nickname == nil && p.Description == nil && p.Power == nil && p.IsActive == nil
}

// Apply writes the non-nil fields of the patch onto u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Nickname != nil {
		u.Nickname = strings.TrimSpace(*p.Nickname)
	}
	if p.Description != nil {
		u.Description = *p.Description
	}
	if p.Power != nil {
		u.Power = append([]string{}, (*p.Power)...)
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}
