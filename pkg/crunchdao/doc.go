// Package crunchdao is a client for the CrunchDAO machine learning
// tournament API.
//
// A Client downloads the dataset files, uploads predictions and reads
// submissions, dataset configurations, rounds and scores:
//
//	client := crunchdao.New(crunchdao.Options{APIKey: key})
//	paths, err := client.DownloadData(ctx, "data")
//	...
//	_, err = client.UploadFile(ctx, "predictions.csv")
//
// Requests about the caller's own account need an API key. Without one
// they fail with ErrNoAPIKey before anything is sent. The key is passed
// explicitly; the package never reads the environment.
//
// Nested API objects are flattened into Row values with snake_case
// columns, ready for tabular output. Scores can be annotated with their
// scoring window through ResolvedScores, see package scoring.
package crunchdao
