package crunchdao

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/crunchdao/crunch-go/internal/downloader"
	crunchhttp "github.com/crunchdao/crunch-go/internal/http"
)

// Default endpoints of the tournament.
const (
	DefaultBaseURL = "https://api.tournament.crunchdao.com"
	DefaultDataURL = "https://tournament.crunchdao.com/data"
)

var (
	// ErrNoAPIKey is returned before any request that needs an API key when
	// none is configured.
	ErrNoAPIKey = errors.New("crunchdao: api key needed for this request")

	// ErrNoSubmissions is returned by LastCrunch when nothing was uploaded
	// to the current round.
	ErrNoSubmissions = errors.New("crunchdao: no submissions in this round")
)

// TransportError is returned when a request fails or the server answers with
// a non-success status.
type TransportError = crunchhttp.TransportError

// Options configures a Client.
type Options struct {
	// BaseURL is the API root. Default: DefaultBaseURL
	BaseURL string

	// DataURL is where dataset files are served from. Default: DefaultDataURL
	DataURL string

	// APIKey authorizes requests about the caller's own account. It is never
	// read from the environment here.
	APIKey string

	// HTTP is the transport. Default: a client with DefaultOptions.
	HTTP *crunchhttp.Client

	// ChunkSize is passed to the downloader.
	ChunkSize int

	// Progress returns a reporter for the named dataset file. Nil disables
	// progress reporting.
	Progress func(file string) downloader.Progress
}

// Client talks to the tournament API.
type Client struct {
	opts Options
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.DataURL == "" {
		opts.DataURL = DefaultDataURL
	}
	if opts.HTTP == nil {
		opts.HTTP = crunchhttp.NewClient(crunchhttp.DefaultOptions())
	}
	return &Client{opts: opts}
}

// Query selects whose data is requested and optionally restricts it to one
// round.
type Query struct {
	// UserID selects another user's public data. Zero means the caller,
	// which requires an API key.
	UserID int

	// Round restricts results to one round. Zero means all rounds.
	Round int
}

func (q Query) user() string {
	if q.UserID == 0 {
		return "@me"
	}
	return strconv.Itoa(q.UserID)
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Round != 0 {
		v.Set("round", strconv.Itoa(q.Round))
	}
	return v
}

// endpoint joins path elements onto the API root.
func (c *Client) endpoint(elem ...string) (string, error) {
	u, err := url.JoinPath(c.opts.BaseURL, elem...)
	if err != nil {
		return "", fmt.Errorf("crunchdao: build url: %w", err)
	}
	return u, nil
}

// authorize adds the API key to q, failing with ErrNoAPIKey when there is
// none.
func (c *Client) authorize(q url.Values) (url.Values, error) {
	if c.opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("apiKey", c.opts.APIKey)
	return q, nil
}
