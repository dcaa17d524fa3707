package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/liminalpurple/sayangku/internal/cli"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Local .env is optional
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "sayangku",
		Short: "A shared photo gallery, sticker book and chat for two",
		Long: `Sayangku - a private space for a couple on Matrix.

Decorate shared photos with stickers, chat with rich formatting and
spoilers, and translate between your languages with Claude.
Run 'sayangku serve' for the web app or 'sayangku bot' for Matrix only.`,
		Version: version,
	}

	rootCmd.AddCommand(cli.NewLoginCmd())
	rootCmd.AddCommand(cli.NewTestCmd())
	rootCmd.AddCommand(cli.NewBotCmd())
	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewGalleryCmd())
	rootCmd.AddCommand(cli.NewStickerCmd())
	rootCmd.AddCommand(cli.NewChatCmd())
	rootCmd.AddCommand(cli.NewTranslateCmd())
	rootCmd.AddCommand(cli.NewDefineCmd())
	rootCmd.AddCommand(cli.NewExamplesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
