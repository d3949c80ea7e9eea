package domain

import "errors"

var (
	// ErrParseFailure is returned when a package text cannot be turned into a positive quantity
	ErrParseFailure = errors.New("package text could not be parsed")

	// ErrInvalidOffer is returned when a raw offer violates its invariants (non-positive or non-finite price, empty name)
	ErrInvalidOffer = errors.New("invalid raw offer")

	// ErrNoGroupMatch is returned when an offer matches no configured group
	ErrNoGroupMatch = errors.New("offer matches no configured group")

	// ErrConfig is returned when configuration or a group definition is structurally invalid
	ErrConfig = errors.New("invalid configuration")

	// ErrSinkUnavailable is returned when the price history store cannot be read or written
	ErrSinkUnavailable = errors.New("price history unavailable")

	// ErrSourceFailure is returned when an offer source fails to produce offers
	ErrSourceFailure = errors.New("offer source failed")

	// ErrNotifyFailure is returned when notification delivery fails
	ErrNotifyFailure = errors.New("notification delivery failed")

	// ErrRunInProgress is returned when a pipeline run is requested while another is running
	ErrRunInProgress = errors.New("pipeline run already in progress")

	// ErrGroupNotFound is returned when a group name is not configured
	ErrGroupNotFound = errors.New("group not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUpstreamFailure is returned when a remote offer API request fails
	ErrUpstreamFailure = errors.New("upstream request failed")
)
