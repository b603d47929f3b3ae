package analysis

import "errors"

// ErrNoResults indicates every batch came back empty: the analysis as a
// whole failed even though no single call raised.
var ErrNoResults = errors.New("no results returned from analysis service")

// ErrNoData indicates the loaded inventory had no rows to analyze.
var ErrNoData = errors.New("no data to analyze")
