package seqreads

import "encoding/json"

// Result is the envelope returned by the read operations. Reads[i] and
// Qualities[i] belong to the same fragment; Qualities is nil when the
// operation does not collect them.
type Result struct {
	Reads     []string
	Qualities []string
}

func newResult(withQualities bool) *Result {
	r := &Result{Reads: []string{}}
	if withQualities {
		r.Qualities = []string{}
	}
	return r
}

func (r *Result) add(bases, qualities string) {
	r.Reads = append(r.Reads, bases)
	if r.Qualities != nil {
		r.Qualities = append(r.Qualities, qualities)
	}
}

// MarshalJSON encodes {"reads": [...], "qualities": [...]} with qualities
// present only when collected
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Reads     []string  `json:"reads"`
		Qualities *[]string `json:"qualities,omitempty"`
	}{Reads: r.Reads}
	if out.Reads == nil {
		out.Reads = []string{}
	}
	if r.Qualities != nil {
		out.Qualities = &r.Qualities
	}
	return json.Marshal(out)
}
