package backend

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/gigboard/internal/marketplace"
)

const (
	profilesTable  = "profiles"
	profileColumns = "id,full_name,role,city,region,skills,availability"
)

// OnlineFlag is the presence projection of a profile row.
type OnlineFlag struct {
	UserID string `json:"id"`
	Online bool   `json:"is_online"`
}

func (c *Client) Profile(ctx context.Context, userID string) (*marketplace.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	q := url.Values{}
	q.Set("select", profileColumns)
	q.Set("id", "eq."+userID)

	rows, err := c.getRows(ctx, profilesTable, q)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}

	row, ok := rows[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("profile %s: unexpected row type %T", userID, rows[0])
	}

	return marketplace.DecodeProfile(row)
}

// SetOnline stores the user's online flag and stamps last_seen.
func (c *Client) SetOnline(ctx context.Context, userID string, online bool) error {
	q := url.Values{}
	q.Set("id", "eq."+userID)

	body := map[string]any{
		"is_online": online,
		"last_seen": c.now().UTC().Format(time.RFC3339),
	}

	return c.patchJSON(ctx, profilesTable, q, body)
}

// OnlineFlags returns the online flag of every profile.
func (c *Client) OnlineFlags(ctx context.Context) ([]OnlineFlag, error) {
	q := url.Values{}
	q.Set("select", "id,is_online")

	rows, err := c.getRows(ctx, profilesTable, q)
	if err != nil {
		return nil, err
	}

	var flags []OnlineFlag
	cfg := &mapstructure.DecoderConfig{
		Result:           &flags,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(rows); err != nil {
		return nil, fmt.Errorf("decode online flags: %w", err)
	}

	return flags, nil
}
