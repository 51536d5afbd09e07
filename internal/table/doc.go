// Package table renders API results as CSV, aligned text or JSON.
package table
