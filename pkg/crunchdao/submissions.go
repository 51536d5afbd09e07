package crunchdao

import (
	"context"
	"fmt"
)

// SubmissionColumns is the preferred column order of flattened submissions.
// Columns the API adds later follow these.
var SubmissionColumns = []string{
	"id",
	"user_id", "username", "deleted", "role",
	"crunch_number", "crunch_ts", "round_id", "final_crunch",
	"upload_ts", "eval_ts", "selected", "selected_by", "comment",
	"file_hash", "file_name", "chosen",
	"private_success", "private_r", "private_g", "private_b", "private_mean",
	"private_message", "private_originality", "private_arena_score",
	"public_success", "public_r", "public_g", "public_b", "public_mean",
	"public_message", "public_originality",
}

var (
	userRenames    = map[string]string{"id": "user_id"}
	crunchRenames  = map[string]string{"number": "crunch_number", "final": "final_crunch", "at": "crunch_ts"}
	generalRenames = map[string]string{"uploadedAt": "upload_ts", "evaluatedAt": "eval_ts"}
)

// Submissions lists submissions of the caller or, with q.UserID, of another
// user. Each submission is flattened into one Row.
func (c *Client) Submissions(ctx context.Context, q Query) ([]Row, error) {
	endpoint, err := c.endpoint("v2", "users", q.user(), "submissions")
	if err != nil {
		return nil, err
	}
	query := q.values()
	if q.UserID == 0 {
		if query, err = c.authorize(query); err != nil {
			return nil, err
		}
	}

	var raw []map[string]any
	if err := c.opts.HTTP.GetJSON(ctx, endpoint, query, &raw); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	rows := make([]Row, 0, len(raw))
	for _, item := range raw {
		rows = append(rows, flattenSubmission(item))
	}
	return rows, nil
}

// flattenSubmission turns the nested user, crunch, private and public
// objects of a submission into prefixed columns next to its own fields.
func flattenSubmission(item map[string]any) Row {
	row := make(Row)
	if user, ok := item["user"].(map[string]any); ok {
		row.merge(user, "", userRenames)
	}
	if crunch, ok := item["crunch"].(map[string]any); ok {
		row.merge(crunch, "", crunchRenames, "id")
	}
	row.merge(item, "", generalRenames, "user", "crunch", "private", "public", "userId")
	if private, ok := item["private"].(map[string]any); ok {
		row.merge(private, "private_", nil)
	}
	if public, ok := item["public"].(map[string]any); ok {
		row.merge(public, "public_", nil)
	}
	return row
}

// LastCrunch returns the highest crunch number the caller uploaded to the
// latest round.
func (c *Client) LastCrunch(ctx context.Context) (int, error) {
	if c.opts.APIKey == "" {
		return 0, ErrNoAPIKey
	}
	cfg, err := c.DatasetConfig(ctx, LatestRound)
	if err != nil {
		return 0, err
	}

	subs, err := c.Submissions(ctx, Query{Round: cfg.RoundID})
	if err != nil {
		return 0, err
	}

	last, found := 0, false
	for _, s := range subs {
		n, ok := s.Int("crunch_number")
		if !ok {
			continue
		}
		if !found || n > last {
			last, found = n, true
		}
	}
	if !found {
		return 0, fmt.Errorf("round %d: %w", cfg.RoundID, ErrNoSubmissions)
	}
	return last, nil
}
