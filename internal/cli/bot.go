package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/liminalpurple/sayangku/internal/bot"
	"github.com/spf13/cobra"
)

// NewBotCmd creates the bot command
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Matrix bot",
		Long: `Run the Matrix bot that keeps the couple's chat and gallery in sync.

The bot watches the configured room and your own reactions:

  - Your partner's messages are added to the chat history (translated
    when auto_translate is on)
  - Reacting to an image with !sticker or !yoink adds it to the sticker
    library and republishes the pack
  - Reacting to an image with !save or 📌 saves it to the gallery
  - Messages starting with !sayang run commands (try "!sayang help")

The bot runs until interrupted with Ctrl+C.`,
		RunE: runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{matrix: true, requireM: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Matrix.RoomID == "" {
		log.Println("Warning: no room_id configured, partner messages will not be received")
	}

	log.Println("Starting bot...")
	sayangBot := bot.NewBot(a.matrix, a.gallery, a.chat, a.assistant, a.cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- sayangBot.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("bot error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		sayangBot.Stop()
		if err := <-errChan; err != nil {
			return fmt.Errorf("bot shutdown error: %w", err)
		}
	}

	log.Println("Bot stopped")
	return nil
}
