package cli

import (
	"context"
	"fmt"

	"github.com/liminalpurple/sayangku/internal/auth"
	"github.com/liminalpurple/sayangku/internal/config"
	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var roomID string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Matrix homeserver",
		Long: `Interactive login to Matrix homeserver.

Prompts for homeserver URL, user ID, and password, then saves credentials
to the configuration file for future use. Pass --room to also set the room
you and your partner chat in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), roomID)
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "room ID of the couple's chat (e.g. !abc:matrix.org)")
	return cmd
}

func runLogin(ctx context.Context, roomID string) error {

	fmt.Println("Sayangku - Login")
	fmt.Println()

	creds, err := auth.InteractiveLogin(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Login successful!")
	fmt.Printf("User ID: %s\n", creds.UserID)
	fmt.Printf("Device ID: %s\n", creds.DeviceID)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Matrix.Homeserver = creds.Homeserver
	cfg.Matrix.UserID = creds.UserID
	cfg.Matrix.DeviceID = creds.DeviceID
	cfg.Matrix.AccessToken = creds.AccessToken
	// A new device starts its sync from scratch
	cfg.Matrix.NextBatch = ""
	if roomID != "" {
		cfg.Matrix.RoomID = roomID
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configDir, _ := config.GetConfigDir()
	fmt.Printf("Credentials saved to: %s/config.yaml\n", configDir)
	fmt.Println()
	if cfg.Matrix.RoomID == "" {
		fmt.Println("Set your chat room with 'sayangku login --room !id:server' or matrix.room_id in config.yaml.")
	}
	fmt.Println("You can now run 'sayangku serve' to start the app!")

	return nil
}
