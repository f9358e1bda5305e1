// Package graphstore persists resolved entity graphs into a graph database
// for later exploration. Archiving is strictly opt-in: the resolution engine
// itself holds nothing across requests, and a deployment without an archive
// configured never touches this package at request time.
package graphstore

import (
	"context"
	"errors"
)

// Client is the minimal contract the archive repository needs from the
// underlying graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the archive URI is not provided.
var ErrMissingURI = errors.New("archive URI is required")
