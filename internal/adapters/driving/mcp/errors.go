// Package mcp provides an MCP (Model Context Protocol) server adapter for postsmith.
// It lets AI assistants search indexed newsletters and start post generation jobs.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// errUnavailable is returned by tools whose backing service is not configured.
var errUnavailable = errors.New("mcp: tool not available in this deployment")
