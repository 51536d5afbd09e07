package crunchdao

import (
	"context"
	"fmt"

	"github.com/crunchdao/crunch-go/pkg/calendar"
	"github.com/crunchdao/crunch-go/pkg/scoring"
)

type apiRound struct {
	ID        int     `json:"id"`
	Inception *string `json:"inception"`
}

type apiScore struct {
	RoundID int     `json:"roundId"`
	Date    string  `json:"date"`
	Value   float64 `json:"value"`
}

// Rounds lists every round with its inception date.
func (c *Client) Rounds(ctx context.Context) ([]scoring.Round, error) {
	endpoint, err := c.endpoint("v2", "rounds")
	if err != nil {
		return nil, err
	}

	var raw []apiRound
	if err := c.opts.HTTP.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}

	rounds := make([]scoring.Round, 0, len(raw))
	for _, r := range raw {
		round := scoring.Round{ID: r.ID}
		if r.Inception != nil && *r.Inception != "" {
			t, err := parseTime(*r.Inception)
			if err != nil {
				return nil, fmt.Errorf("round %d: inception: %w", r.ID, err)
			}
			day := calendar.Day(t)
			round.Inception = &day
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

// Scores lists daily scores of the caller or, with q.UserID, of another user.
func (c *Client) Scores(ctx context.Context, q Query) ([]scoring.Score, error) {
	endpoint, err := c.endpoint("v2", "users", q.user(), "scores")
	if err != nil {
		return nil, err
	}
	query := q.values()
	if q.UserID == 0 {
		if query, err = c.authorize(query); err != nil {
			return nil, err
		}
	}

	var raw []apiScore
	if err := c.opts.HTTP.GetJSON(ctx, endpoint, query, &raw); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	scores := make([]scoring.Score, 0, len(raw))
	for _, s := range raw {
		t, err := parseTime(s.Date)
		if err != nil {
			return nil, fmt.Errorf("score of round %d: date: %w", s.RoundID, err)
		}
		scores = append(scores, scoring.Score{RoundID: s.RoundID, Date: calendar.Day(t), Value: s.Value})
	}
	return scores, nil
}

// ResolvedScores fetches rounds and scores and annotates every score with
// its target and scoring window. Targets come from the latest dataset
// configuration.
func (c *Client) ResolvedScores(ctx context.Context, cal calendar.Calendar, q Query, onlyResolved bool) ([]scoring.Record, error) {
	if q.UserID == 0 && c.opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg, err := c.DatasetConfig(ctx, LatestRound)
	if err != nil {
		return nil, err
	}
	targets, err := cfg.Targets()
	if err != nil {
		return nil, fmt.Errorf("dataset config targets: %w", err)
	}

	rounds, err := c.Rounds(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := c.Scores(ctx, q)
	if err != nil {
		return nil, err
	}

	resolver := scoring.Resolver{Calendar: cal, Targets: targets}
	return resolver.Resolve(rounds, scores, onlyResolved)
}
