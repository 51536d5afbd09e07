package crunchdao

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/crunchdao/crunch-go/pkg/scoring"
)

// LatestRound selects the current round in DatasetConfig.
const LatestRound = 0

// DatasetConfig is the dataset configuration of a round.
type DatasetConfig struct {
	RoundID           int
	DatasetID         int
	DatasetName       string
	Live              bool
	Updated           bool
	FirstOfInception  bool
	NegativePrevented bool

	// Inception is nil when the round has not started.
	Inception *time.Time

	// MoonsDuration and Periods are ISO 8601 durations such as "P7D".
	MoonsDuration string
	Periods       map[string]string

	// Fields holds every field of the response under snake_case names,
	// including ones not mapped above.
	Fields Row
}

// Targets derives the scoring target table from the moons duration and
// periods.
func (d *DatasetConfig) Targets() ([]scoring.Target, error) {
	return scoring.TargetsFromPeriods(d.MoonsDuration, d.Periods)
}

// DatasetConfig fetches the dataset configuration of round, or of the latest
// round when round is LatestRound.
func (c *Client) DatasetConfig(ctx context.Context, round int) (*DatasetConfig, error) {
	id := "@latest"
	if round != LatestRound {
		id = strconv.Itoa(round)
	}
	endpoint, err := c.endpoint("v2", "rounds", id, "dataset-config")
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := c.opts.HTTP.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("get dataset config: %w", err)
	}
	return parseDatasetConfig(raw)
}

func parseDatasetConfig(raw map[string]any) (*DatasetConfig, error) {
	fields := make(Row)
	fields.merge(raw, "", nil, "id", "dataset")
	if ds, ok := raw["dataset"].(map[string]any); ok {
		fields["dataset_id"] = ds["id"]
		fields["dataset_name"] = ds["name"]
	}

	cfg := &DatasetConfig{
		DatasetName:       fields.String("dataset_name"),
		Live:              fields.Bool("live"),
		Updated:           fields.Bool("updated"),
		FirstOfInception:  fields.Bool("first_of_inception"),
		NegativePrevented: fields.Bool("negative_prevented"),
		MoonsDuration:     fields.String("moons_duration"),
		Fields:            fields,
	}

	var ok bool
	if cfg.RoundID, ok = fields.Int("round_id"); !ok {
		return nil, fmt.Errorf("dataset config: missing round_id")
	}
	cfg.DatasetID, _ = fields.Int("dataset_id")

	if s := fields.String("inception"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			return nil, fmt.Errorf("dataset config: inception: %w", err)
		}
		cfg.Inception = &t
	}

	if periods, ok := fields["periods"].(map[string]any); ok {
		cfg.Periods = make(map[string]string, len(periods))
		for name, v := range periods {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("dataset config: period %s is not a string", name)
			}
			cfg.Periods[name] = s
		}
	}
	return cfg, nil
}
