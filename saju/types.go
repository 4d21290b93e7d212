package saju

// Pillar is a single stem/branch pair of a four-pillars chart.
type Pillar struct {
	Stem   string `json:"stem"`
	Branch string `json:"branch"`
}

// String renders the pillar as "stem-branch" for prompts and logs.
func (p Pillar) String() string {
	if p.Stem == "" && p.Branch == "" {
		return "unknown"
	}
	return p.Stem + "-" + p.Branch
}

// Pillars holds the four pillars derived from the birth datetime.
type Pillars struct {
	Year  Pillar `json:"year"`
	Month Pillar `json:"month"`
	Day   Pillar `json:"day"`
	Hour  Pillar `json:"hour"`
}

// Result is the chart produced by the saju calculator. The AI pipeline
// treats it as opaque: it is serialized into the provider prompt and used
// for cache fingerprinting, but its fields are never recomputed here.
type Result struct {
	Pillars        Pillars        `json:"pillars"`
	Elements       map[string]int `json:"elements,omitempty"`
	DominantElem   string         `json:"dominantElement,omitempty"`
	ZodiacAnimal   string         `json:"zodiacAnimal,omitempty"`
	Interpretation string         `json:"interpretation,omitempty"`
}

// IsEmpty reports whether the chart carries no usable data. An empty chart
// must be rejected before any provider call is attempted.
func (r *Result) IsEmpty() bool {
	if r == nil {
		return true
	}
	return r.Pillars == Pillars{} && len(r.Elements) == 0 && r.Interpretation == ""
}
