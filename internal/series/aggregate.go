package series

import "math"

// Wrap computes min/max over records in a single pass and pairs them with the
// records, preserving input order. An empty input yields the +Inf/-Inf sentinels.
func Wrap(records []Record) ResultSet {
	if records == nil {
		records = []Record{}
	}

	minValue := math.Inf(1)
	maxValue := math.Inf(-1)
	for _, r := range records {
		minValue = math.Min(minValue, r.V)
		maxValue = math.Max(maxValue, r.V)
	}

	return ResultSet{
		Data: records,
		Meta: Meta{
			MinValue: minValue,
			MaxValue: maxValue,
		},
	}
}
