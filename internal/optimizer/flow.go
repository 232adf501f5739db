// Package optimizer implements the resume optimizer wizard: bullet entry,
// bullet editing, job description, settings and submission, then results.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/parsing"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const (
	firstStep = types.OptimizerStepBullets
	lastStep  = types.OptimizerStepResults

	// MinJDLength is the job description length that must be exceeded to leave step 3
	MinJDLength = 50
)

// Messages shown on the results step
const (
	msgRetrieveFailed = "We couldn't retrieve your results. Please start over and try again."
	msgSubmitFailed   = "We couldn't submit your bullets. Please try again."
)

// Rehydrate is the load predicate for optimizer state. Unlike booking,
// optimizer state always resumes, step 1 included.
func Rehydrate(types.OptimizerState) bool {
	return true
}

// NewStore returns the persisted optimizer store for one visitor
func NewStore(backend store.Backend, visitorID string) store.Store[types.OptimizerState] {
	return store.WithRehydration[types.OptimizerState](
		store.NewJSON[types.OptimizerState](backend, store.Key("optimizer", visitorID)),
		Rehydrate,
	)
}

// Deps are the optimizer's collaborators. Jobs is required for Submit,
// Fetcher for FetchJD; a nil Usage disables the allowance check.
type Deps struct {
	Jobs    JobClient
	Fetcher JDFetcher
	Usage   UsageGate
	Poll    PollConfig
	Now     func() time.Time
}

// Flow is one visitor's optimizer wizard
type Flow struct {
	visitorID string
	store     store.Store[types.OptimizerState]
	deps      Deps
	state     types.OptimizerState
}

// Load creates a flow for visitorID, restoring persisted state when present
func Load(ctx context.Context, visitorID string, s store.Store[types.OptimizerState], deps Deps) (*Flow, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	f := &Flow{visitorID: visitorID, store: s, deps: deps, state: types.NewOptimizerState()}

	saved, ok, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load optimizer state: %w", err)
	}
	if ok {
		f.state = merge(saved)
	}
	return f, nil
}

// merge lays persisted state over the initial state and repairs the
// bullet lockstep if the record was edited out of band
func merge(saved types.OptimizerState) types.OptimizerState {
	saved.CurrentStep = clamp(saved.CurrentStep)
	saved.IsProcessing = false
	if saved.Errors == nil {
		saved.Errors = map[string]string{}
	}
	if saved.Bullets == nil {
		saved.Bullets = []string{}
	}

	edited := make([]string, len(saved.Bullets))
	for i := range edited {
		if i < len(saved.EditedBullets) {
			edited[i] = saved.EditedBullets[i]
		} else {
			edited[i] = saved.Bullets[i]
		}
	}
	saved.EditedBullets = edited

	defaults := types.DefaultSettings()
	if saved.Settings.Tone == "" {
		saved.Settings.Tone = defaults.Tone
	}
	if saved.Settings.MaxLen == 0 {
		saved.Settings.MaxLen = defaults.MaxLen
	}
	if saved.Settings.Variants == 0 {
		saved.Settings.Variants = defaults.Variants
	}
	return saved
}

func clamp(step int) int {
	if step < firstStep {
		return firstStep
	}
	if step > lastStep {
		return lastStep
	}
	return step
}

// State returns a deep copy of the current state
func (f *Flow) State() types.OptimizerState {
	out := f.state
	out.Bullets = append([]string{}, f.state.Bullets...)
	out.EditedBullets = append([]string{}, f.state.EditedBullets...)
	out.Errors = make(map[string]string, len(f.state.Errors))
	for k, v := range f.state.Errors {
		out.Errors[k] = v
	}
	if f.state.ParsedJD != nil {
		parsed := f.state.ParsedJD.Clone()
		out.ParsedJD = &parsed
	}
	return out
}

func (f *Flow) persist(ctx context.Context) error {
	f.state.UpdatedAt = f.deps.Now().UTC()
	saved := f.state
	saved.IsProcessing = false
	if err := f.store.Save(ctx, saved); err != nil {
		return fmt.Errorf("failed to save optimizer state: %w", err)
	}
	return nil
}

// SetBullets replaces the bullet list. The edited copy starts identical and
// later edits never change the originals.
func (f *Flow) SetBullets(ctx context.Context, bullets []string) error {
	f.state.Bullets = append([]string{}, bullets...)
	f.state.EditedBullets = append([]string{}, bullets...)
	return f.persist(ctx)
}

// SetBulletsFromText splits pasted text into bullets and sets them
func (f *Flow) SetBulletsFromText(ctx context.Context, text string) error {
	return f.SetBullets(ctx, SplitBullets(text))
}

// UpdateBullet replaces the edited text of one bullet
func (f *Flow) UpdateBullet(ctx context.Context, index int, text string) error {
	if index < 0 || index >= len(f.state.EditedBullets) {
		return &IndexError{Index: index, Len: len(f.state.EditedBullets)}
	}
	f.state.EditedBullets[index] = text
	return f.persist(ctx)
}

// AddBullet appends a bullet to both lists
func (f *Flow) AddBullet(ctx context.Context, text string) error {
	f.state.Bullets = append(f.state.Bullets, text)
	f.state.EditedBullets = append(f.state.EditedBullets, text)
	return f.persist(ctx)
}

// RemoveBullet removes one bullet from both lists
func (f *Flow) RemoveBullet(ctx context.Context, index int) error {
	if index < 0 || index >= len(f.state.Bullets) {
		return &IndexError{Index: index, Len: len(f.state.Bullets)}
	}
	f.state.Bullets = append(f.state.Bullets[:index:index], f.state.Bullets[index+1:]...)
	f.state.EditedBullets = append(f.state.EditedBullets[:index:index], f.state.EditedBullets[index+1:]...)
	return f.persist(ctx)
}

// SetJDText stores the raw job description
func (f *Flow) SetJDText(ctx context.Context, text string) error {
	f.state.JDText = text
	return f.persist(ctx)
}

// SetParsedJD stores a parsed job description, or clears it when nil
func (f *Flow) SetParsedJD(ctx context.Context, parsed *types.ParsedJD) error {
	if parsed == nil {
		f.state.ParsedJD = nil
	} else {
		clone := parsed.Clone()
		f.state.ParsedJD = &clone
	}
	return f.persist(ctx)
}

// UpdateParsedJD merges patch into the parsed job description
func (f *Flow) UpdateParsedJD(ctx context.Context, patch types.ParsedJDPatch) error {
	if f.state.ParsedJD == nil {
		return &StepError{Step: f.state.CurrentStep, Reason: "job description has not been parsed"}
	}
	updated := patch.Apply(*f.state.ParsedJD)
	f.state.ParsedJD = &updated
	return f.persist(ctx)
}

// RemoveSkill drops one detected skill or tool from the parsed job description
func (f *Flow) RemoveSkill(ctx context.Context, skill string) error {
	if f.state.ParsedJD == nil {
		return &StepError{Step: f.state.CurrentStep, Reason: "job description has not been parsed"}
	}
	updated := parsing.WithoutSkill(*f.state.ParsedJD, skill)
	f.state.ParsedJD = &updated
	return f.persist(ctx)
}

// ParseJD parses the current job description text and stores the result
func (f *Flow) ParseJD(ctx context.Context) (types.ParsedJD, error) {
	parsed := parsing.Parse(f.state.JDText)
	return parsed, f.SetParsedJD(ctx, &parsed)
}

// FetchJD loads the job description from a posting URL, then parses it
func (f *Flow) FetchJD(ctx context.Context, url string) (err error) {
	if f.deps.Fetcher == nil {
		return &TransportError{Op: "fetch job description", Cause: errors.New("no fetcher configured")}
	}

	if err := f.SetProcessing(ctx, true); err != nil {
		return err
	}
	defer f.clearProcessing(ctx, &err)

	text, err := f.deps.Fetcher.FetchText(ctx, url)
	if err != nil {
		f.state.Errors = map[string]string{"jd_url": "We couldn't load that job posting. Paste the description instead."}
		if perr := f.persist(ctx); perr != nil {
			log.Printf("[optimizer] failed to save fetch error: %v", perr)
		}
		return &TransportError{Op: "fetch job description", Cause: err}
	}

	f.state.JDURL = url
	f.state.JDText = text
	f.state.Errors = map[string]string{}
	parsed := parsing.Parse(text)
	f.state.ParsedJD = &parsed
	return f.persist(ctx)
}

// UpdateSettings merges patch into the settings. Ranges are enforced by the job service.
func (f *Flow) UpdateSettings(ctx context.Context, patch types.SettingsPatch) error {
	f.state.Settings = patch.Apply(f.state.Settings)
	return f.persist(ctx)
}

// SetJobID records the submitted job
func (f *Flow) SetJobID(ctx context.Context, id *string) error {
	if id == nil {
		f.state.JobID = nil
	} else {
		jobID := *id
		f.state.JobID = &jobID
	}
	return f.persist(ctx)
}

// SetResults records the job results
func (f *Flow) SetResults(ctx context.Context, results *types.OptimizerResults) error {
	f.state.Results = results
	return f.persist(ctx)
}

// SetProcessing marks an in-flight operation. The flag is never persisted as true.
func (f *Flow) SetProcessing(ctx context.Context, processing bool) error {
	f.state.IsProcessing = processing
	return f.persist(ctx)
}

// clearProcessing resets the processing flag even when ctx was cancelled
func (f *Flow) clearProcessing(ctx context.Context, errp *error) {
	if err := f.SetProcessing(context.WithoutCancel(ctx), false); err != nil && *errp == nil {
		*errp = err
	}
}

// CanProceedFromStep reports whether the wizard may leave step
func (f *Flow) CanProceedFromStep(step int) bool {
	s := f.state
	switch step {
	case types.OptimizerStepBullets:
		return len(s.Bullets) > 0
	case types.OptimizerStepReview:
		if len(s.EditedBullets) == 0 {
			return false
		}
		for _, b := range s.EditedBullets {
			if strings.TrimSpace(b) == "" {
				return false
			}
		}
		return true
	case types.OptimizerStepJD:
		return len(strings.TrimSpace(s.JDText)) > MinJDLength
	case types.OptimizerStepSettings:
		return len(s.Bullets) > 0 && strings.TrimSpace(s.JDText) != "" && !s.IsProcessing
	default:
		return false
	}
}

// Next advances one step when the current step allows it
func (f *Flow) Next(ctx context.Context) error {
	if f.state.CurrentStep < lastStep && !f.CanProceedFromStep(f.state.CurrentStep) {
		return &StepError{Step: f.state.CurrentStep, Reason: "step is incomplete"}
	}
	f.state.CurrentStep = clamp(f.state.CurrentStep + 1)
	return f.persist(ctx)
}

// Prev goes back one step, stopping at step 1
func (f *Flow) Prev(ctx context.Context) error {
	f.state.CurrentStep = clamp(f.state.CurrentStep - 1)
	return f.persist(ctx)
}

// GoToStep jumps directly to step, clamped to the valid range
func (f *Flow) GoToStep(ctx context.Context, step int) error {
	f.state.CurrentStep = clamp(step)
	return f.persist(ctx)
}

// StartOver discards everything and returns to step 1
func (f *Flow) StartOver(ctx context.Context) error {
	f.state = types.NewOptimizerState()
	return f.persist(ctx)
}

// Submit sends the edited bullets and job description to the job service
// and polls until the job finishes. Completed jobs land on the results
// step. Failed or timed out jobs also land there with JobError set and
// require StartOver.
func (f *Flow) Submit(ctx context.Context) (err error) {
	if f.deps.Jobs == nil {
		return &TransportError{Op: "submit job", Cause: errors.New("no job service configured")}
	}
	if !f.CanProceedFromStep(types.OptimizerStepSettings) {
		return &StepError{Step: types.OptimizerStepSettings, Reason: "bullets and a job description are required"}
	}
	if f.deps.Usage != nil {
		decision, err := f.deps.Usage.CanUse(ctx)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return &UsageError{PaidCredits: decision.PaidCredits}
		}
	}

	f.state.JobError = ""
	f.state.Results = nil
	f.state.JobID = nil
	f.state.Errors = map[string]string{}
	if err := f.SetProcessing(ctx, true); err != nil {
		return err
	}
	defer f.clearProcessing(ctx, &err)

	req := types.JobRequest{
		JobDescription: f.state.JDText,
		Bullets:        append([]string{}, f.state.EditedBullets...),
		Settings: types.JobSettings{
			Tone:     f.state.Settings.Tone,
			MaxLen:   f.state.Settings.MaxLen,
			Variants: f.state.Settings.Variants,
		},
	}

	submitted, err := f.deps.Jobs.Submit(ctx, req)
	if err != nil {
		f.state.Errors = map[string]string{"submit": msgSubmitFailed}
		if perr := f.persist(ctx); perr != nil {
			log.Printf("[optimizer] failed to save submit error: %v", perr)
		}
		return &TransportError{Op: "submit job", Cause: err}
	}
	jobID := submitted.JobID
	if err := f.SetJobID(ctx, &jobID); err != nil {
		return err
	}
	log.Printf("[optimizer] submitted job %s for %s (%d candidates)", jobID, f.visitorID, submitted.TotalCandidates)

	if f.deps.Usage != nil {
		if _, err := f.deps.Usage.RecordUse(ctx); err != nil {
			log.Printf("[optimizer] failed to record usage for %s: %v", f.visitorID, err)
		}
	}

	completed, err := PollJob(ctx, f.deps.Jobs, jobID, f.deps.Poll)
	if err != nil {
		return f.finishWithError(ctx, jobID, err)
	}

	f.state.Results = FirstCandidateResults(jobID, completed)
	f.state.CurrentStep = types.OptimizerStepResults
	return f.persist(ctx)
}

// finishWithError records a terminal polling error on the results step.
// Cancellation is passed through untouched.
func (f *Flow) finishWithError(ctx context.Context, jobID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var jobErr *JobError
	if errors.As(err, &jobErr) {
		f.state.JobError = jobErr.Error()
	} else {
		f.state.JobError = msgRetrieveFailed
	}
	log.Printf("[optimizer] job %s for %s ended: %v", jobID, f.visitorID, err)

	f.state.CurrentStep = types.OptimizerStepResults
	if perr := f.persist(ctx); perr != nil {
		log.Printf("[optimizer] failed to save job error: %v", perr)
	}
	return err
}
