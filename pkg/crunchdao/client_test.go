package crunchdao

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/crunchdao/crunch-go/internal/downloader"
	crunchhttp "github.com/crunchdao/crunch-go/internal/http"
	"github.com/crunchdao/crunch-go/internal/testutils"
	"github.com/crunchdao/crunch-go/pkg/calendar"
)

const testKey = "secret-key"

func newTestClient(api *testutils.APIServer, key string) *Client {
	return New(Options{BaseURL: api.URL, APIKey: key})
}

func sampleSubmission() map[string]any {
	return map[string]any{
		"id":          101,
		"userId":      7,
		"uploadedAt":  "2024-01-05T18:00:00Z",
		"evaluatedAt": "2024-01-05T19:00:00Z",
		"selected":    true,
		"selectedBy":  "user",
		"comment":     "baseline",
		"fileHash":    "abc",
		"fileName":    "preds.csv",
		"chosen":      false,
		"user":        map[string]any{"id": 7, "username": "alice", "deleted": false, "role": "cruncher"},
		"crunch":      map[string]any{"id": 900, "number": 3, "final": "no", "at": "2024-01-06T00:00:00Z", "roundId": 76},
		"private":     map[string]any{"success": true, "r": 0.1, "arenaScore": 1.5},
		"public":      map[string]any{"success": true, "mean": 0.2},
	}
}

func TestAPIKeyRequired(t *testing.T) {
	api := testutils.StartAPIServer(t)
	client := newTestClient(api, "")
	ctx := context.Background()

	calls := map[string]func() error{
		"Submissions": func() error { _, err := client.Submissions(ctx, Query{}); return err },
		"Scores":      func() error { _, err := client.Scores(ctx, Query{Round: 3}); return err },
		"Upload":      func() error { _, err := client.Upload(ctx, strings.NewReader("a,b\n")); return err },
		"UploadFile":  func() error { _, err := client.UploadFile(ctx, "does-not-matter.csv"); return err },
		"Update":      func() error { _, err := client.UpdateSubmission(ctx, 1, SubmissionUpdate{}); return err },
		"LastCrunch":  func() error { _, err := client.LastCrunch(ctx); return err },
		"Resolved": func() error {
			_, err := client.ResolvedScores(ctx, calendar.Weekdays{}, Query{}, false)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNoAPIKey) {
				t.Errorf("error = %v, want ErrNoAPIKey", err)
			}
		})
	}

	if n := len(api.Requests()); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestSubmissions(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.JSON(http.MethodGet, "/v2/users/@me/submissions", http.StatusOK, []any{sampleSubmission()})
	client := newTestClient(api, testKey)

	rows, err := client.Submissions(context.Background(), Query{Round: 76})
	if err != nil {
		t.Fatalf("Submissions() error = %v", err)
	}

	req := api.LastRequest()
	if req.Query.Get("apiKey") != testKey {
		t.Errorf("apiKey = %q, want %q", req.Query.Get("apiKey"), testKey)
	}
	if req.Query.Get("round") != "76" {
		t.Errorf("round = %q, want 76", req.Query.Get("round"))
	}

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]

	want := map[string]any{
		"id":                  float64(101),
		"user_id":             float64(7),
		"username":            "alice",
		"role":                "cruncher",
		"crunch_number":       float64(3),
		"final_crunch":        "no",
		"crunch_ts":           "2024-01-06T00:00:00Z",
		"round_id":            float64(76),
		"upload_ts":           "2024-01-05T18:00:00Z",
		"eval_ts":             "2024-01-05T19:00:00Z",
		"selected_by":         "user",
		"file_hash":           "abc",
		"file_name":           "preds.csv",
		"private_success":     true,
		"private_r":           0.1,
		"private_arena_score": 1.5,
		"public_mean":         0.2,
	}
	for col, v := range want {
		if row[col] != v {
			t.Errorf("row[%q] = %v, want %v", col, row[col], v)
		}
	}

	for _, col := range []string{"user", "crunch", "private", "public", "userId", "uploadedAt"} {
		if _, ok := row[col]; ok {
			t.Errorf("unexpected column %q", col)
		}
	}
	if n, ok := row.Int("crunch_number"); !ok || n != 3 {
		t.Errorf("Int(crunch_number) = %d, %v", n, ok)
	}
}

func TestSubmissionsOtherUser(t *testing.T) {
	api := testutils.StartAPIServer(t)
	item := sampleSubmission()
	delete(item, "private")
	api.JSON(http.MethodGet, "/v2/users/42/submissions", http.StatusOK, []any{item})
	client := newTestClient(api, "")

	rows, err := client.Submissions(context.Background(), Query{UserID: 42})
	if err != nil {
		t.Fatalf("Submissions() error = %v", err)
	}
	if api.LastRequest().Query.Has("apiKey") {
		t.Error("public request carried an api key")
	}
	if api.LastRequest().Query.Has("round") {
		t.Error("round sent although none was requested")
	}
	if _, ok := rows[0]["private_success"]; ok {
		t.Error("private columns present without private data")
	}
}

func TestSubmissionsTransportError(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.JSON(http.MethodGet, "/v2/users/@me/submissions", http.StatusInternalServerError, map[string]string{"error": "boom"})
	client := newTestClient(api, testKey)

	_, err := client.Submissions(context.Background(), Query{})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if te.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", te.StatusCode)
	}
	if strings.Contains(te.Error(), testKey) {
		t.Errorf("error leaks api key: %v", te)
	}
}

func datasetConfigBody(round int) map[string]any {
	return map[string]any{
		"id":                500,
		"roundId":           round,
		"live":              true,
		"updated":           false,
		"periods":           map[string]any{"red": "P30D", "green": "P60D", "blue": "P90D"},
		"inception":         "2024-01-01",
		"firstOfInception":  false,
		"moonsDuration":     "P7D",
		"negativePrevented": true,
		"dataset":           map[string]any{"id": 4, "name": "e-kinetic"},
	}
}

func TestDatasetConfig(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.JSON(http.MethodGet, "/v2/rounds/@latest/dataset-config", http.StatusOK, datasetConfigBody(77))
	api.JSON(http.MethodGet, "/v2/rounds/76/dataset-config", http.StatusOK, datasetConfigBody(76))
	client := newTestClient(api, "")

	cfg, err := client.DatasetConfig(context.Background(), LatestRound)
	if err != nil {
		t.Fatalf("DatasetConfig() error = %v", err)
	}
	if cfg.RoundID != 77 || cfg.DatasetID != 4 || cfg.DatasetName != "e-kinetic" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.Live || cfg.Updated || !cfg.NegativePrevented {
		t.Errorf("unexpected flags: %+v", cfg)
	}
	if cfg.Inception == nil || !cfg.Inception.Equal(calendar.Date(2024, 1, 1)) {
		t.Errorf("Inception = %v", cfg.Inception)
	}
	if cfg.Periods["red"] != "P30D" || cfg.MoonsDuration != "P7D" {
		t.Errorf("periods = %v, moons = %q", cfg.Periods, cfg.MoonsDuration)
	}
	for _, col := range []string{"id", "dataset", "roundId"} {
		if _, ok := cfg.Fields[col]; ok {
			t.Errorf("Fields contains %q", col)
		}
	}
	for _, col := range []string{"round_id", "dataset_id", "dataset_name", "first_of_inception", "moons_duration"} {
		if _, ok := cfg.Fields[col]; !ok {
			t.Errorf("Fields lacks %q", col)
		}
	}

	targets, err := cfg.Targets()
	if err != nil {
		t.Fatalf("Targets() error = %v", err)
	}
	names := make([]string, len(targets))
	for i, tg := range targets {
		names[i] = tg.Name
	}
	if got := strings.Join(names, ","); got != "week,red,green,blue" {
		t.Errorf("targets = %s", got)
	}

	cfg, err = client.DatasetConfig(context.Background(), 76)
	if err != nil {
		t.Fatalf("DatasetConfig(76) error = %v", err)
	}
	if cfg.RoundID != 76 {
		t.Errorf("RoundID = %d, want 76", cfg.RoundID)
	}
}

func TestDatasetConfigNullInception(t *testing.T) {
	body := datasetConfigBody(80)
	body["inception"] = nil

	cfg, err := parseDatasetConfig(body)
	if err != nil {
		t.Fatalf("parseDatasetConfig() error = %v", err)
	}
	if cfg.Inception != nil {
		t.Errorf("Inception = %v, want nil", cfg.Inception)
	}
}

func TestLastCrunch(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.JSON(http.MethodGet, "/v2/rounds/@latest/dataset-config", http.StatusOK, datasetConfigBody(77))

	subs := make([]any, 0, 3)
	for _, n := range []int{2, 5, 4} {
		s := sampleSubmission()
		s["crunch"] = map[string]any{"id": n, "number": n}
		subs = append(subs, s)
	}
	api.JSON(http.MethodGet, "/v2/users/@me/submissions", http.StatusOK, subs)
	client := newTestClient(api, testKey)

	last, err := client.LastCrunch(context.Background())
	if err != nil {
		t.Fatalf("LastCrunch() error = %v", err)
	}
	if last != 5 {
		t.Errorf("LastCrunch() = %d, want 5", last)
	}
	if got := api.LastRequest().Query.Get("round"); got != "77" {
		t.Errorf("round = %q, want 77", got)
	}
}

func TestLastCrunchNoSubmissions(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.JSON(http.MethodGet, "/v2/rounds/@latest/dataset-config", http.StatusOK, datasetConfigBody(77))
	api.JSON(http.MethodGet, "/v2/users/@me/submissions", http.StatusOK, []any{})
	client := newTestClient(api, testKey)

	if _, err := client.LastCrunch(context.Background()); !errors.Is(err, ErrNoSubmissions) {
		t.Errorf("error = %v, want ErrNoSubmissions", err)
	}
}

func TestUpload(t *testing.T) {
	api := testutils.StartAPIServer(t)

	var (
		gotKey, gotName, gotField string
		gotContent                []byte
	)
	api.Handle(http.MethodPost, "/v2/submissions", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotKey = r.FormValue("apiKey")
		for field, files := range r.MultipartForm.File {
			gotField = field
			gotName = files[0].Filename
			f, _ := files[0].Open()
			gotContent, _ = io.ReadAll(f)
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": 55, "crunch": map[string]any{"number": 6}})
	})
	client := newTestClient(api, testKey)

	row, err := client.Upload(context.Background(), strings.NewReader("id,pred\n1,0.5\n"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if gotKey != testKey {
		t.Errorf("apiKey field = %q", gotKey)
	}
	if gotField != "file" || gotName != "x" {
		t.Errorf("file part = %q named %q, want file named x", gotField, gotName)
	}
	if string(gotContent) != "id,pred\n1,0.5\n" {
		t.Errorf("content = %q", gotContent)
	}
	if n, _ := row.Int("crunch_number"); n != 6 {
		t.Errorf("crunch_number = %d, want 6", n)
	}
}

func TestUploadFile(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.Handle(http.MethodPost, "/v2/submissions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	client := newTestClient(api, testKey)

	path := filepath.Join(t.TempDir(), "preds.csv")
	testutils.WriteFile(t, path, []byte("id,pred\n"))

	row, err := client.UploadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if len(row) != 0 {
		t.Errorf("row = %v, want empty for a plain text reply", row)
	}

	if _, err := client.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		status int
		reason string
	}{
		{http.StatusBadRequest, "the file must not be empty"},
		{http.StatusUnauthorized, "your email hasn't been verified"},
		{http.StatusNotFound, "unknown API key"},
		{http.StatusConflict, "duplicate submission"},
		{http.StatusUnprocessableEntity, "API key is missing or empty"},
		{http.StatusLocked, "submissions are closed"},
		{http.StatusTooManyRequests, "too many submissions"},
		{http.StatusTeapot, "server returned status 418"},
		{http.StatusBadGateway, "server returned status 502"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			api := testutils.StartAPIServer(t)
			api.Handle(http.MethodPost, "/v2/submissions", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			client := newTestClient(api, testKey)

			_, err := client.Upload(context.Background(), strings.NewReader("x"))

			var se *SubmissionError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want SubmissionError", err)
			}
			if se.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.status)
			}
			if se.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", se.Reason, tt.reason)
			}
			var te *TransportError
			if !errors.As(err, &te) {
				t.Error("SubmissionError does not wrap the TransportError")
			}
		})
	}
}

func TestUpdateSubmission(t *testing.T) {
	api := testutils.StartAPIServer(t)
	api.JSON(http.MethodPatch, "/v2/submissions/101", http.StatusOK, map[string]any{"id": 101, "selected": true, "comment": "final"})
	client := newTestClient(api, testKey)

	comment, selected := "final", true
	row, err := client.UpdateSubmission(context.Background(), 101, SubmissionUpdate{Comment: &comment, Selected: &selected})
	if err != nil {
		t.Fatalf("UpdateSubmission() error = %v", err)
	}
	if !row.Bool("selected") || row.String("comment") != "final" {
		t.Errorf("row = %v", row)
	}

	req := api.LastRequest()
	if req.Query.Get("apiKey") != testKey {
		t.Error("update was not authorized")
	}
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if body["comment"] != "final" || body["selected"] != true {
		t.Errorf("body = %v", body)
	}

	// Only set fields are sent.
	if _, err := client.UpdateSubmission(context.Background(), 101, SubmissionUpdate{Selected: &selected}); err != nil {
		t.Fatalf("UpdateSubmission() error = %v", err)
	}
	if strings.Contains(string(api.LastRequest().Body), "comment") {
		t.Errorf("unset comment was sent: %s", api.LastRequest().Body)
	}
}

type recordingProgress struct {
	mu      sync.Mutex
	started []int64
	added   int64
}

func (p *recordingProgress) Start(total, resumed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, total)
}

func (p *recordingProgress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added += n
}

func (p *recordingProgress) Stop() {}

func TestDownloadData(t *testing.T) {
	files := make([]testutils.TestFile, 0, len(DataFiles))
	for i, name := range DataFiles {
		files = append(files, testutils.TestFile{Name: name, Data: testutils.GenerateTestData(1000 * (i + 1))})
	}
	fs := testutils.StartFileServer(t, files...)

	dir := filepath.Join(t.TempDir(), "data")
	labels := make([]string, 0, len(DataFiles))
	rec := &recordingProgress{}
	client := New(Options{
		DataURL:   fs.URL,
		ChunkSize: 256,
		Progress: func(file string) downloader.Progress {
			labels = append(labels, file)
			return rec
		},
	})

	paths, err := client.DownloadData(context.Background(), dir)
	if err != nil {
		t.Fatalf("DownloadData() error = %v", err)
	}

	if len(paths) != len(DataFiles) {
		t.Fatalf("got %d paths, want %d", len(paths), len(DataFiles))
	}
	for i, f := range files {
		if paths[i] != filepath.Join(dir, f.Name) {
			t.Errorf("paths[%d] = %s", i, paths[i])
		}
		testutils.AssertFileContent(t, paths[i], f.Data)
	}
	if strings.Join(labels, ",") != strings.Join(DataFiles, ",") {
		t.Errorf("progress labels = %v", labels)
	}
	if rec.added != 6000 {
		t.Errorf("progress saw %d bytes, want 6000", rec.added)
	}

	// A second call finds every file complete.
	before := fs.Requests()
	if _, err := client.DownloadData(context.Background(), dir); err != nil {
		t.Fatalf("second DownloadData() error = %v", err)
	}
	if fs.RangeRequests() != 0 {
		t.Errorf("complete files were re-requested with ranges")
	}
	if fs.Requests()-before != len(DataFiles) {
		t.Errorf("second call made %d requests, want one probe per file", fs.Requests()-before)
	}
}

func TestDownloadDataMissingFile(t *testing.T) {
	fs := testutils.StartFileServer(t, testutils.TestFile{Name: "X_train.csv", Data: []byte("a")})
	client := New(Options{DataURL: fs.URL})

	paths, err := client.DownloadData(context.Background(), t.TempDir())

	if !errors.Is(err, crunchhttp.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
	if len(paths) != 1 {
		t.Errorf("got %d paths before the failure, want 1", len(paths))
	}
}
