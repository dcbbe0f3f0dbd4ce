package service

import "errors"

// ErrNotStarted is returned by operations called before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// ErrClanNotTracked is returned when a clan tag does not match the configured clan.
var ErrClanNotTracked = errors.New("clan not tracked")

// ErrClanTagRequired is returned by Insights when no clan tag is given.
var ErrClanTagRequired = errors.New("clanTag is required")

// ErrNoInsights is returned when there is no roster to summarise yet.
var ErrNoInsights = errors.New("no insights available")
