package infostore

import "time"

// Ring is a bounded history of float samples, oldest dropped first. Fields
// are exported so histories survive the snapshot wire format.
type Ring struct {
	Capacity int       `json:"capacity"`
	Values   []float64 `json:"values,omitempty"`
}

func NewRing(capacity int) *Ring {
	return &Ring{Capacity: capacity}
}

func (r *Ring) Push(v float64) {
	r.Values = append(r.Values, v)
	if len(r.Values) > r.Capacity {
		r.Values = r.Values[len(r.Values)-r.Capacity:]
	}
}

func (r *Ring) Len() int { return len(r.Values) }

func (r *Ring) Last() (float64, bool) {
	if len(r.Values) == 0 {
		return 0, false
	}
	return r.Values[len(r.Values)-1], true
}

// Tail returns the most recent n values, fewer if the ring holds fewer.
func (r *Ring) Tail(n int) []float64 {
	if n >= len(r.Values) {
		return r.Values
	}
	return r.Values[len(r.Values)-n:]
}

// MeanTail averages the most recent n values. Empty rings yield the given
// fallback.
func (r *Ring) MeanTail(n int, fallback float64) float64 {
	tail := r.Tail(n)
	if len(tail) == 0 {
		return fallback
	}
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail))
}

func (r *Ring) clone() *Ring {
	if r == nil {
		return nil
	}
	clone := &Ring{Capacity: r.Capacity}
	if len(r.Values) > 0 {
		clone.Values = append([]float64{}, r.Values...)
	}
	return clone
}

// JobSample is one entry of a user history ring. Zero samples are kept to
// convey submission rate.
type JobSample struct {
	JobID string    `json:"jobId,omitempty"`
	Paid  float64   `json:"paid,omitempty"`
	Delay float64   `json:"delay,omitempty"`
	Dist  int       `json:"dist,omitempty"`
	At    time.Time `json:"at,omitempty"`
}

// SampleRing is a bounded history of job samples.
type SampleRing struct {
	Capacity int         `json:"capacity"`
	Samples  []JobSample `json:"samples,omitempty"`
}

func NewSampleRing(capacity int) *SampleRing {
	return &SampleRing{Capacity: capacity}
}

func (r *SampleRing) Push(s JobSample) {
	r.Samples = append(r.Samples, s)
	if len(r.Samples) > r.Capacity {
		r.Samples = r.Samples[len(r.Samples)-r.Capacity:]
	}
}

func (r *SampleRing) Len() int { return len(r.Samples) }

func (r *SampleRing) clone() *SampleRing {
	if r == nil {
		return nil
	}
	clone := &SampleRing{Capacity: r.Capacity}
	if len(r.Samples) > 0 {
		clone.Samples = append([]JobSample{}, r.Samples...)
	}
	return clone
}
