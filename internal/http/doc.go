// Package http provides the transport used to talk to the tournament API
// and to fetch dataset files.
//
// This package handles:
//   - Streaming GET requests, optionally resuming at a byte offset
//   - JSON GET and PATCH requests
//   - Multipart POST uploads
//   - Mapping non-success statuses to TransportError
//
// Requests are never retried; retry is the caller's responsibility.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Stream a file, resuming at byte 1024
//	resp, err := client.Get(ctx, url, 1024)
//	defer resp.Body.Close()
//
//	// Decode a JSON endpoint
//	var rounds []Round
//	err = client.GetJSON(ctx, url, url.Values{"round": {"42"}}, &rounds)
package http
