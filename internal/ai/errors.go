package ai

import "errors"

var errUnconfigured = errors.New("ai: no adapter configured")
