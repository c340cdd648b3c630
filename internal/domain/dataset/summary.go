package dataset

import "github.com/okian/edupredict/internal/domain/model"

// Summary describes the class distribution of a record set.
type Summary struct {
	Total int
	Pass  int
	Fail  int
}

// PassRate returns the fraction of Pass records, or 0 for an empty set.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Pass) / float64(s.Total)
}

// Summarize counts results in records.
func Summarize(records []model.Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Result == model.Pass {
			s.Pass++
		} else {
			s.Fail++
		}
	}
	return s
}
