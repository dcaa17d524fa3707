package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/liminalpurple/sayangku/internal/llm"
	"github.com/liminalpurple/sayangku/internal/storage"
	"github.com/spf13/cobra"
)

// NewTranslateCmd creates the translate command
func NewTranslateCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "translate <lang> <text>...",
		Short: "Translate text into a language",
		Example: `  sayangku translate id I miss you
  sayangku translate --from id en aku kangen kamu`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguage(cmd.Context(), from, args[0], func(ctx context.Context, a assistant, source, target string) (string, error) {
				return a.Translate(ctx, strings.Join(args[1:], " "), source, target)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source language (default chat.language)")
	return cmd
}

// NewDefineCmd creates the define command
func NewDefineCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "define <lang> <word>...",
		Short:   "Explain a word or expression",
		Example: `  sayangku define id rindu`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguage(cmd.Context(), "", args[0], func(ctx context.Context, a assistant, _, target string) (string, error) {
				return a.Define(ctx, strings.Join(args[1:], " "), target)
			})
		},
	}
}

// NewExamplesCmd creates the examples command
func NewExamplesCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:     "examples <lang> <word>...",
		Short:   "Show example sentences using a word",
		Example: `  sayangku examples id sayang`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguage(cmd.Context(), from, args[0], func(ctx context.Context, a assistant, source, target string) (string, error) {
				return a.Examples(ctx, strings.Join(args[1:], " "), source, target)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "language for the translations (default chat.language)")
	return cmd
}

// runLanguage resolves the language pair and prints fn's answer. The source
// defaults to the configured chat language.
func runLanguage(ctx context.Context, from, to string, fn func(ctx context.Context, a assistant, source, target string) (string, error)) error {
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if a.assistant == nil {
		return fmt.Errorf("no Anthropic API key configured - set ANTHROPIC_API_KEY or add to config.yaml")
	}

	if from == "" {
		from = a.cfg.Chat.Language
	}
	source, target, err := languagePair(from, to)
	if err != nil {
		return err
	}

	out, err := fn(ctx, a.assistant, source, target)
	var svc *llm.ServiceError
	if errors.As(err, &svc) {
		log.Printf("Language request failed: %v", svc.Err)
		return errors.New(svc.Error())
	} else if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}

// languagePair parses two languages into their prompt names
func languagePair(from, to string) (string, string, error) {
	source, err := storage.ParseLanguage(from)
	if err != nil {
		return "", "", err
	}
	target, err := storage.ParseLanguage(to)
	if err != nil {
		return "", "", err
	}
	return storage.LanguageName(source), storage.LanguageName(target), nil
}
