package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrServiceFailed marks every translator failure. The error's message is
// safe to show to the user; the cause is kept for logging.
var ErrServiceFailed = errors.New("translation service failed")

// ServiceError is a translator failure with a generic user-visible message
type ServiceError struct {
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() []error {
	return []error{ErrServiceFailed, e.Err}
}

const (
	translateFailed = "Failed to translate text. Please check your API key and network connection."
	defineFailed    = "Failed to get definition."
	examplesFailed  = "Failed to get examples."
)

// Translate translates text from one language to another. Only the
// translation is returned. Empty input returns an empty string.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return c.run(ctx, "translation", translatePrompt(text, sourceLang, targetLang), translateFailed)
}

// Define explains every meaning of a word or expression, as markdown
func (c *Client) Define(ctx context.Context, word, lang string) (string, error) {
	if strings.TrimSpace(word) == "" {
		return "", nil
	}
	return c.run(ctx, "definition", definePrompt(word, lang), defineFailed)
}

// Examples returns example sentences in targetLang with translations into
// sourceLang, as a markdown list
func (c *Client) Examples(ctx context.Context, word, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(word) == "" {
		return "", nil
	}
	return c.run(ctx, "examples", examplesPrompt(word, sourceLang, targetLang), examplesFailed)
}

func (c *Client) run(ctx context.Context, op, prompt, failure string) (string, error) {
	out, err := c.complete(ctx, prompt)
	if err != nil {
		log.Printf("LLM %s error: %v", op, err)
		return "", &ServiceError{Message: failure, Err: err}
	}
	return out, nil
}

func translatePrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf(`Translate the following text from %s to %s. Provide only the translation, without any additional explanations or context.

Text to translate: %q
`, sourceLang, targetLang, text)
}

func definePrompt(word, lang string) string {
	return fmt.Sprintf(`Provide all possible definitions for the following word or expression in %s.
If it is an expression, explain its meaning.
Format the output clearly with headings for each definition if there are multiple.
If no definition can be found, please state that clearly.

Word/Expression: %q
`, lang, word)
}

func examplesPrompt(word, sourceLang, targetLang string) string {
	return fmt.Sprintf(`Provide a few clear example sentences for how to use the following word or expression in %s.
For each example, provide the sentence in %s and also provide its translation in %s.
Format the output as a list.
If no examples can be found, please state that clearly.

Word/Expression: %q
`, targetLang, targetLang, sourceLang, word)
}
