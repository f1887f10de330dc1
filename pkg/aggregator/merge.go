package aggregator

import "time"

// Merge is the Go rendering of merge_results: it flattens every
// successful source's rows into one list, tallies success/failure
// counts per source, and collects the failed sources' errors. It never
// fails outright — a MergedResult with SuccessfulSources == 0 is still
// a well-formed (if empty) result, matching the source's behavior of
// returning `success: False` rather than raising when every source
// failed. Unlike merge_results, each row carries a "source_id" key
// naming its origin (spec.md §4.6), since a flattened merge otherwise
// gives the caller no way to tell which backend a row came from.
func Merge(results []SourceResult) MergedResult {
	start := time.Now()
	defer func() {
		AggregationDurationObserve("merge", time.Since(start))
	}()

	merged := MergedResult{
		SourcesQueried: len(results),
		Results:        []map[string]any{},
	}

	for _, r := range results {
		if !r.Success {
			merged.FailedSources++
			merged.Errors = append(merged.Errors, SourceError{SourceID: r.SourceID, Error: r.Error})
			continue
		}
		merged.SuccessfulSources++
		for _, row := range r.Data {
			tagged := make(map[string]any, len(row)+1)
			for k, v := range row {
				tagged[k] = v
			}
			tagged["source_id"] = r.SourceID
			merged.Results = append(merged.Results, tagged)
		}
	}

	merged.TotalRows = len(merged.Results)
	merged.Success = merged.SuccessfulSources > 0
	return merged
}
