// Package auth logs sayangku into the couple's Matrix account.
package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// DeviceID is the device sayangku logs in as
const DeviceID = "SAYANGKU"

// LoginCredentials holds the result of a successful login
type LoginCredentials struct {
	Homeserver  string
	UserID      string
	DeviceID    string
	AccessToken string
}

// InteractiveLogin prompts on the terminal for credentials and logs in
func InteractiveLogin(ctx context.Context) (*LoginCredentials, error) {
	reader := bufio.NewReader(os.Stdin)

	homeserver, err := prompt(reader, "Homeserver URL (e.g., https://matrix.org): ")
	if err != nil {
		return nil, fmt.Errorf("failed to read homeserver: %w", err)
	}
	userID, err := prompt(reader, "User ID (e.g., @sayang:matrix.org): ")
	if err != nil {
		return nil, fmt.Errorf("failed to read user ID: %w", err)
	}

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return PasswordLogin(ctx, homeserver, userID, string(passwordBytes))
}

// PasswordLogin logs in with a user ID and password
func PasswordLogin(ctx context.Context, homeserver, userID, password string) (*LoginCredentials, error) {
	if homeserver == "" || userID == "" {
		return nil, fmt.Errorf("homeserver and user ID are required")
	}

	client, err := mautrix.NewClient(homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	resp, err := client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: userID,
		},
		Password:                 password,
		DeviceID:                 id.DeviceID(DeviceID),
		InitialDeviceDisplayName: "Sayangku",
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return &LoginCredentials{
		Homeserver:  homeserver,
		UserID:      resp.UserID.String(),
		DeviceID:    resp.DeviceID.String(),
		AccessToken: resp.AccessToken,
	}, nil
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
