package types

import "time"

// Optimizer wizard steps
const (
	OptimizerStepBullets  = 1
	OptimizerStepReview   = 2
	OptimizerStepJD       = 3
	OptimizerStepSettings = 4
	OptimizerStepResults  = 5
)

// Tone values offered by the settings step
const (
	ToneProfessional = "professional"
	ToneConfident    = "confident"
	ToneConcise      = "concise"
)

// Settings controls how bullets are rewritten
type Settings struct {
	Tone     string `json:"tone"`
	MaxLen   int    `json:"max_len"`
	Variants int    `json:"variants"`
}

// DefaultSettings returns the settings a fresh optimizer starts with
func DefaultSettings() Settings {
	return Settings{
		Tone:     ToneProfessional,
		MaxLen:   150,
		Variants: 2,
	}
}

// SettingsPatch is a partial Settings update; nil fields are left untouched
type SettingsPatch struct {
	Tone     *string `json:"tone,omitempty"`
	MaxLen   *int    `json:"max_len,omitempty"`
	Variants *int    `json:"variants,omitempty"`
}

// Apply merges the patch into s and returns the result
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Tone != nil {
		s.Tone = *p.Tone
	}
	if p.MaxLen != nil {
		s.MaxLen = *p.MaxLen
	}
	if p.Variants != nil {
		s.Variants = *p.Variants
	}
	return s
}

// BulletResult pairs an original bullet with its rewritten variants
type BulletResult struct {
	Original string   `json:"original"`
	Revised  []string `json:"revised"`
	Score    *float64 `json:"score,omitempty"`
}

// OptimizerResults is what the results step renders
type OptimizerResults struct {
	JobID   string         `json:"job_id"`
	Bullets []BulletResult `json:"bullets"`
}

// OptimizerState is the persisted state of the resume optimizer wizard
type OptimizerState struct {
	CurrentStep   int               `json:"current_step"`
	Bullets       []string          `json:"bullets"`
	EditedBullets []string          `json:"edited_bullets"`
	JDText        string            `json:"jd_text"`
	JDURL         string            `json:"jd_url,omitempty"`
	ParsedJD      *ParsedJD         `json:"parsed_jd"`
	Settings      Settings          `json:"settings"`
	JobID         *string           `json:"job_id"`
	Results       *OptimizerResults `json:"results"`
	JobError      string            `json:"job_error,omitempty"`
	IsProcessing  bool              `json:"is_processing"`
	Errors        map[string]string `json:"errors"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewOptimizerState returns the initial optimizer state
func NewOptimizerState() OptimizerState {
	return OptimizerState{
		CurrentStep:   OptimizerStepBullets,
		Bullets:       []string{},
		EditedBullets: []string{},
		Settings:      DefaultSettings(),
		Errors:        map[string]string{},
	}
}
