package models

import (
	"sort"
	"time"
)

// ChatGroup is a conversation entity, either a direct chat between exactly
// two users or an admin-governed group. Membership and admin sets hold user
// ids only; user details are resolved through the directory when needed.
type ChatGroup struct {
	ID           string         `db:"id" json:"id"`
	IsGroup      bool           `db:"is_group" json:"is_group"`
	Name         string         `db:"name" json:"name,omitempty"`
	ImageRef     string         `db:"image_ref" json:"image_ref,omitempty"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	Members      []string       `json:"members"`
	Admins       []string       `json:"admins,omitempty"`
	UnreadCounts map[string]int `json:"unread_counts"`
}

// HasMember reports whether the user belongs to the chat.
func (c *ChatGroup) HasMember(userID string) bool {
	return containsID(c.Members, userID)
}

// HasAdmin reports whether the user is an admin of the chat.
func (c *ChatGroup) HasAdmin(userID string) bool {
	return containsID(c.Admins, userID)
}

// AddMember inserts the user into the member set with a zero unread counter.
func (c *ChatGroup) AddMember(userID string) {
	c.Members = insertID(c.Members, userID)
	if c.UnreadCounts == nil {
		c.UnreadCounts = map[string]int{}
	}
	if _, ok := c.UnreadCounts[userID]; !ok {
		c.UnreadCounts[userID] = 0
	}
}

// RemoveMember drops the user from the member and admin sets and discards
// their unread counter.
func (c *ChatGroup) RemoveMember(userID string) {
	c.Members = removeID(c.Members, userID)
	c.Admins = removeID(c.Admins, userID)
	delete(c.UnreadCounts, userID)
}

// AddAdmin inserts the user into the admin set.
func (c *ChatGroup) AddAdmin(userID string) {
	c.Admins = insertID(c.Admins, userID)
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// insertID keeps the slice sorted and free of duplicates so that iteration
// order is stable across loads.
func insertID(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	ids = append(ids, id)
	sort.Strings(ids)
	return ids
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
