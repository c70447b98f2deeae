// Package api handles incoming HTTP requests, request validation and
// response formatting for the analysis queue. It translates HTTP calls into
// queue, worker and persistence operations and never holds queue state of
// its own.
package api
