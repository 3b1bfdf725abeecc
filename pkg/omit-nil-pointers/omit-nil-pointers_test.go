package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOmitNilPointers(t *testing.T) {
	title := "movie night"
	var private *bool

	got := OmitNilPointers(map[string]any{
		"title":      &title,
		"is_private": private,
		"limit":      3,
		"nothing":    nil,
	})

	assert.Equal(t, map[string]any{"title": "movie night", "limit": 3}, got)
}

func TestFromStruct(t *testing.T) {
	yes := true
	topic := "films"
	params := struct {
		Topic     *string `json:"topic"`
		IsPrivate *bool   `json:"is_private,omitempty"`
		CanPause  *bool   `json:"users_can_pause"`
		Sender    string  `json:"sender"`
		Hidden    *bool   `json:"-"`
	}{Topic: &topic, IsPrivate: &yes, Hidden: &yes, Sender: "x"}

	assert.Equal(t, map[string]any{"topic": "films", "is_private": true}, FromStruct(&params))
	assert.Empty(t, FromStruct(42))
}
