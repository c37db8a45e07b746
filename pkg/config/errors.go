package config

import "errors"

// ErrNoCities is returned when a configuration loads with an empty cities
// section — the conductor would otherwise poll nothing.
var ErrNoCities = errors.New("config: no cities configured")
