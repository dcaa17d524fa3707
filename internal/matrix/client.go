// Package matrix connects sayangku to the couple's Matrix room.
// It wraps mautrix-go with the chat transport and sticker publishing.
package matrix

import (
	"context"
	"fmt"
	"log"
	"slices"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// Client is the couple's Matrix account
type Client struct {
	*mautrix.Client
	UserID id.UserID
}

// NewClient creates a client for an already logged in account
func NewClient(homeserver string, userID string, accessToken string) (*Client, error) {
	client, err := mautrix.NewClient(homeserver, id.UserID(userID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	return &Client{
		Client: client,
		UserID: id.UserID(userID),
	}, nil
}

// Connect verifies the access token belongs to the configured user
func (c *Client) Connect(ctx context.Context) error {
	resp, err := c.Whoami(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}

	if resp.UserID != c.UserID {
		return fmt.Errorf("user ID mismatch: expected %s, got %s", c.UserID, resp.UserID)
	}

	return nil
}

// EnsureJoined joins the chat room unless the account is already a member.
// Invites are accepted the same way.
func (c *Client) EnsureJoined(ctx context.Context, roomID id.RoomID) error {
	resp, err := c.JoinedRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list joined rooms: %w", err)
	}
	if slices.Contains(resp.JoinedRooms, roomID) {
		return nil
	}

	if _, err := c.JoinRoomByID(ctx, roomID); err != nil {
		return fmt.Errorf("failed to join %s: %w", roomID, err)
	}
	log.Printf("Joined chat room %s", roomID)
	return nil
}
