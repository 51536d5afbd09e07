package crunchdao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	crunchhttp "github.com/crunchdao/crunch-go/internal/http"
)

// uploadFileName is the multipart file name the API expects.
const uploadFileName = "x"

// SubmissionError is returned when the API rejects an upload.
type SubmissionError struct {
	StatusCode int
	Reason     string
	Hint       string
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("crunchdao: submission rejected (status %d): %s", e.StatusCode, e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// submissionRejection maps upload status codes to a reason and a hint.
func submissionRejection(status int) (reason, hint string) {
	switch status {
	case http.StatusBadRequest:
		return "the file must not be empty", "an empty file was sent"
	case http.StatusUnauthorized:
		return "your email hasn't been verified", "verify your email or contact a cruncher"
	case http.StatusNotFound:
		return "unknown API key", "check that the API key is the one you received by email"
	case http.StatusConflict:
		return "duplicate submission", "the exact same results were already submitted; contact a cruncher if this is a false positive"
	case http.StatusUnprocessableEntity:
		return "API key is missing or empty", "set the API key before submitting"
	case http.StatusLocked:
		return "submissions are closed", "submit while a round is open, or wait until the server has crunched the submitted files"
	case http.StatusTooManyRequests:
		return "too many submissions", ""
	default:
		return "server returned status " + strconv.Itoa(status), "unexpected reply; contact a cruncher if the problem persists"
	}
}

// Upload submits predictions in CSV form. The returned Row describes the
// created submission when the API returns one.
func (c *Client) Upload(ctx context.Context, predictions io.Reader) (Row, error) {
	if c.opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	endpoint, err := c.endpoint("v2", "submissions")
	if err != nil {
		return nil, err
	}

	body, err := c.opts.HTTP.PostMultipart(ctx, endpoint, map[string]string{"apiKey": c.opts.APIKey}, crunchhttp.FormFile{
		Field:   "file",
		Name:    uploadFileName,
		Content: predictions,
	})
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode != 0 {
			reason, hint := submissionRejection(te.StatusCode)
			return nil, &SubmissionError{StatusCode: te.StatusCode, Reason: reason, Hint: hint, Err: err}
		}
		return nil, fmt.Errorf("upload: %w", err)
	}

	logrus.WithField("component", "crunchdao").Info("submission accepted")

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		// Older API versions answer with plain text.
		return Row{}, nil
	}
	return flattenSubmission(created), nil
}

// UploadFile submits the predictions stored in path.
func (c *Client) UploadFile(ctx context.Context, path string) (Row, error) {
	if c.opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	return c.Upload(ctx, f)
}

// SubmissionUpdate holds the editable fields of a submission. Nil fields are
// left unchanged.
type SubmissionUpdate struct {
	Comment  *string `json:"comment,omitempty"`
	Selected *bool   `json:"selected,omitempty"`
}

// UpdateSubmission changes the comment or selection of one of the caller's
// submissions and returns the updated submission.
func (c *Client) UpdateSubmission(ctx context.Context, id int, update SubmissionUpdate) (Row, error) {
	query, err := c.authorize(nil)
	if err != nil {
		return nil, err
	}
	endpoint, err := c.endpoint("v2", "submissions", strconv.Itoa(id))
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := c.opts.HTTP.PatchJSON(ctx, endpoint, query, update, &raw); err != nil {
		return nil, fmt.Errorf("update submission %d: %w", id, err)
	}
	return flattenSubmission(raw), nil
}
