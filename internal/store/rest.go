package store

import (
	"context"

	"github.com/spigell/gigboard/internal/backend"
	"github.com/spigell/gigboard/internal/presence"
)

// Backend is the part of the marketplace API the REST store needs.
type Backend interface {
	SetOnline(ctx context.Context, userID string, online bool) error
	OnlineFlags(ctx context.Context) ([]backend.OnlineFlag, error)
}

// REST keeps presence in the is_online/last_seen columns of the profiles table.
type REST struct {
	api Backend
}

func NewREST(api Backend) *REST {
	return &REST{api: api}
}

func (s *REST) WriteOnlineFlag(ctx context.Context, userID string, online bool) error {
	return presence.WriteError(userID, s.api.SetOnline(ctx, userID, online))
}

func (s *REST) ReadAllOnlineFlags(ctx context.Context) ([]presence.Flag, error) {
	rows, err := s.api.OnlineFlags(ctx)
	if err != nil {
		return nil, presence.ReadError(err)
	}

	flags := make([]presence.Flag, 0, len(rows))
	for _, row := range rows {
		if row.UserID == "" {
			continue
		}
		flags = append(flags, presence.Flag{UserID: row.UserID, Online: row.Online})
	}

	return sortFlags(flags), nil
}
