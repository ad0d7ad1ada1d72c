// Package store holds the presence.Store adapters: the marketplace REST API, Redis and Postgres.
package store

import (
	"sort"

	"github.com/spigell/gigboard/internal/presence"
)

const (
	KindREST     = "rest"
	KindRedis    = "redis"
	KindPostgres = "postgres"
)

var (
	_ presence.Store = (*REST)(nil)
	_ presence.Store = (*Redis)(nil)
	_ presence.Store = (*Postgres)(nil)
)

func sortFlags(flags []presence.Flag) []presence.Flag {
	sort.Slice(flags, func(i, j int) bool { return flags[i].UserID < flags[j].UserID })
	return flags
}
