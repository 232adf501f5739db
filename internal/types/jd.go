package types

// Seniority is the inferred level of a job posting
type Seniority string

// Seniority levels
const (
	SeniorityEntry   Seniority = "entry"
	SeniorityMid     Seniority = "mid"
	SenioritySenior  Seniority = "senior"
	SeniorityLead    Seniority = "lead"
	SeniorityUnknown Seniority = "unknown"
)

// ParsedJD is the structured form of a job description produced by the rule-based parser
type ParsedJD struct {
	JobTitle    string    `json:"job_title"`
	Seniority   Seniority `json:"seniority"`
	HardSkills  []string  `json:"hard_skills"`
	Tools       []string  `json:"tools"`
	SoftSkills  []string  `json:"soft_skills"`
	MustHaves   []string  `json:"must_haves"`
	NiceToHaves []string  `json:"nice_to_haves"`
}

// Clone returns a deep copy so edits never touch the original's arrays
func (p ParsedJD) Clone() ParsedJD {
	p.HardSkills = cloneStrings(p.HardSkills)
	p.Tools = cloneStrings(p.Tools)
	p.SoftSkills = cloneStrings(p.SoftSkills)
	p.MustHaves = cloneStrings(p.MustHaves)
	p.NiceToHaves = cloneStrings(p.NiceToHaves)
	return p
}

// Keywords returns all detected skills and tools
func (p ParsedJD) Keywords() []string {
	out := make([]string, 0, len(p.HardSkills)+len(p.Tools)+len(p.SoftSkills))
	out = append(out, p.HardSkills...)
	out = append(out, p.Tools...)
	out = append(out, p.SoftSkills...)
	return out
}

// ParsedJDPatch is a partial ParsedJD update; nil fields are left untouched
type ParsedJDPatch struct {
	JobTitle    *string    `json:"job_title,omitempty"`
	Seniority   *Seniority `json:"seniority,omitempty"`
	HardSkills  []string   `json:"hard_skills,omitempty"`
	Tools       []string   `json:"tools,omitempty"`
	SoftSkills  []string   `json:"soft_skills,omitempty"`
	MustHaves   []string   `json:"must_haves,omitempty"`
	NiceToHaves []string   `json:"nice_to_haves,omitempty"`
}

// Apply merges the patch over p and returns a new value
func (patch ParsedJDPatch) Apply(p ParsedJD) ParsedJD {
	out := p.Clone()
	if patch.JobTitle != nil {
		out.JobTitle = *patch.JobTitle
	}
	if patch.Seniority != nil {
		out.Seniority = *patch.Seniority
	}
	if patch.HardSkills != nil {
		out.HardSkills = cloneStrings(patch.HardSkills)
	}
	if patch.Tools != nil {
		out.Tools = cloneStrings(patch.Tools)
	}
	if patch.SoftSkills != nil {
		out.SoftSkills = cloneStrings(patch.SoftSkills)
	}
	if patch.MustHaves != nil {
		out.MustHaves = cloneStrings(patch.MustHaves)
	}
	if patch.NiceToHaves != nil {
		out.NiceToHaves = cloneStrings(patch.NiceToHaves)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
