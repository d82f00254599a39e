package domain

import "errors"

var (
	// ErrMalformedBulletin is returned when a bulletin lacks a section marker
	// or a field expected at a fixed position.
	ErrMalformedBulletin = errors.New("malformed bulletin")

	// ErrMissingMetric is returned when a model version has no value recorded
	// for the requested metric.
	ErrMissingMetric = errors.New("metric not recorded")

	// ErrUnknownMetric is returned when no selection rule exists for a metric.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrNotFound is returned by object stores and caches on a missing key.
	ErrNotFound = errors.New("not found")

	// ErrMissingCredentials is returned when a required API key or secret is not configured.
	ErrMissingCredentials = errors.New("missing credentials")
)
