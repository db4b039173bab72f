package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/sentinel-auth/internal/domain"
)

// Source is an encyclopedia that can search titles and summarize pages.
// Summary follows redirects and returns ErrPageMissing or a
// *DisambiguationError for the corresponding page states.
type Source interface {
	Search(ctx context.Context, query string) ([]string, error)
	Summary(ctx context.Context, title string, sentences int) (string, error)
}

// Transcript receives the user and bot turns of each answer.
type Transcript interface {
	Append(ctx context.Context, msgs ...domain.Message) error
}

// Responder turns questions into short encyclopedia answers.
type Responder struct {
	source     Source
	sentences  int
	maxOptions int
	logger     *slog.Logger
}

// NewResponder creates a responder summarizing in the given number of
// sentences and listing at most maxOptions disambiguation choices.
func NewResponder(source Source, sentences, maxOptions int, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	if sentences <= 0 {
		sentences = 2
	}
	if maxOptions <= 0 {
		maxOptions = 5
	}
	return &Responder{
		source:     source,
		sentences:  sentences,
		maxOptions: maxOptions,
		logger:     logger,
	}
}

// Lookup resolves query to a Result without touching any transcript.
func (r *Responder) Lookup(ctx context.Context, query string) Result {
	titles, err := r.source.Search(ctx, query)
	if err != nil {
		return Result{Kind: KindUnknown, Err: fmt.Errorf("search %q: %w", query, err)}
	}
	if len(titles) == 0 {
		return Result{Kind: KindNotFound}
	}

	title := titles[0]
	summary, err := r.source.Summary(ctx, title, r.sentences)
	if err == nil {
		return Result{Kind: KindFound, Title: title, Summary: summary}
	}

	var disambiguation *DisambiguationError
	switch {
	case errors.As(err, &disambiguation):
		options := disambiguation.Options
		if len(options) > r.maxOptions {
			options = options[:r.maxOptions]
		}
		return Result{Kind: KindAmbiguous, Title: title, Options: options}
	case errors.Is(err, ErrPageMissing):
		return Result{Kind: KindPageMissing, Title: title}
	default:
		return Result{Kind: KindUnknown, Title: title, Err: fmt.Errorf("summary %q: %w", title, err)}
	}
}

// Answer looks up query and appends the user turn and the bot turn to
// transcript in one call. The returned text is always user-presentable;
// the error reports only transcript failures.
func (r *Responder) Answer(ctx context.Context, transcript Transcript, query string) (string, error) {
	result := r.Lookup(ctx, query)
	if result.Kind == KindUnknown {
		r.logger.Warn("Lookup failed", "query_length", len(query), "error", result.Err)
	}

	answer := result.Message()
	if err := transcript.Append(ctx, domain.UserMessage(query), domain.BotMessage(answer)); err != nil {
		return answer, fmt.Errorf("append transcript: %w", err)
	}
	return answer, nil
}
