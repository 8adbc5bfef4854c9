// Package session persists the client's session between runs: the token
// pair, the signed-in user's profile and the premium flag.
//
// Backend is the durable key-value layer (SQLite or memory). Store gives each
// named field its own getter and setter on top of it.
package session

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("session backend closed")

// Entry is one typed value of a batch write.
type Entry struct {
	Key    string
	Text   string
	Flag   bool
	IsBool bool
}

func StringEntry(key, value string) Entry {
	return Entry{Key: key, Text: value}
}

func BoolEntry(key string, value bool) Entry {
	return Entry{Key: key, Flag: value, IsBool: true}
}

// Backend is a typed key-value store. Reads of absent keys report ok=false
// and a nil error; errors are reserved for storage failures.
type Backend interface {
	String(ctx context.Context, key string) (value string, ok bool, err error)
	SetString(ctx context.Context, key, value string) error
	Bool(ctx context.Context, key string) (value bool, ok bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
	// Set writes all entries atomically: either every entry is stored or
	// none is.
	Set(ctx context.Context, entries ...Entry) error
	// Delete removes all keys atomically.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
