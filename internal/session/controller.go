package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Akshatoff/Alloc8/internal/gateway"
	"github.com/Akshatoff/Alloc8/internal/observability/metrics"
	"github.com/Akshatoff/Alloc8/internal/planner"
	"github.com/Akshatoff/Alloc8/pkg/logging"
)

// State identifies where a session sits in the data-collection flow.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingAugmentation State = "awaiting_augmentation"
	StateAwaitingQuestions    State = "awaiting_questions"
	StateAskingQuestion       State = "asking_question"
	StateAwaitingSummary      State = "awaiting_summary"
	StateAwaitingNeeds        State = "awaiting_needs_extraction"
	StateReadyForStrategy     State = "ready_for_strategy"
	StateTerminal             State = "terminal"
)

var (
	// ErrInvalidState is returned when an operation does not apply to the
	// session's current state.
	ErrInvalidState = errors.New("session: operation not valid in current state")
	// ErrEmptyDescription rejects a blank initial report.
	ErrEmptyDescription = errors.New("session: description is required")
	// ErrEmptyAnswer rejects a blank answer.
	ErrEmptyAnswer = errors.New("session: answer is required")
	// ErrSessionReset indicates the session was reset while a call was in
	// flight; the stale result has been discarded.
	ErrSessionReset = errors.New("session: reset while request was in flight")
)

// Controller drives one session's conversation through its stages. All
// generative calls happen inside SubmitInitialReport and SubmitAnswer;
// everything else is pure state.
//
// Operations that call the gateway are serialized per session. StartOver may
// run concurrently with an in-flight operation: it cancels the pending call
// and bumps the reset generation so the stale result is discarded when it
// lands.
type Controller struct {
	opMu sync.Mutex

	mu             sync.Mutex
	state          State
	record         Record
	questionIndex  int
	generation     uint64
	cancelInFlight context.CancelFunc
	lastActive     time.Time

	generator gateway.Generator
	logger    *logging.Logger
	metrics   *metrics.SessionMetrics
}

// NewController returns a Controller in the Idle state.
func NewController(gen gateway.Generator, logger *logging.Logger, m *metrics.SessionMetrics) *Controller {
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		state:      StateIdle,
		generator:  gen,
		logger:     logger,
		metrics:    m,
		lastActive: time.Now(),
	}
}

// ReportResult is the outcome of the initial report submission. When the
// model produced no questions, the flow runs straight through summarization
// and the Summary/Needs fields are populated.
type ReportResult struct {
	Augmented         string           `json:"augmentedData"`
	Sources           []gateway.Source `json:"sources,omitempty"`
	Questions         []string         `json:"questions"`
	NextQuestion      string           `json:"nextQuestion,omitempty"`
	QuestionsDegraded bool             `json:"questionsDegraded,omitempty"`

	Summary       string                   `json:"finalSummary,omitempty"`
	Needs         *planner.StructuredNeeds `json:"parsedNeeds,omitempty"`
	NeedsDegraded bool                     `json:"needsDegraded,omitempty"`

	State State `json:"state"`
}

// AnswerResult is the outcome of answering one dynamic question.
type AnswerResult struct {
	NextQuestion string `json:"nextQuestion,omitempty"`
	// Done is true once all questions are answered and summarization ran.
	Done          bool                     `json:"done"`
	Summary       string                   `json:"finalSummary,omitempty"`
	Needs         *planner.StructuredNeeds `json:"parsedNeeds,omitempty"`
	NeedsDegraded bool                     `json:"needsDegraded,omitempty"`
	State         State                    `json:"state"`
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Record returns a snapshot of the collected data.
func (c *Controller) Record() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.clone()
}

// CurrentQuestion returns the pending question, if any.
func (c *Controller) CurrentQuestion() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAskingQuestion || c.questionIndex >= len(c.record.Questions) {
		return "", false
	}
	return c.record.Questions[c.questionIndex], true
}

// LastActive reports the time of the most recent operation, for idle reaping.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// SubmitInitialReport starts the flow: the description is augmented with
// grounded search data, then a targeted question list is generated. A
// failure in either call returns the session to Idle with nothing lost but
// the partial AI output.
func (c *Controller) SubmitInitialReport(ctx context.Context, description string, formData map[string]string) (*ReportResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: report already submitted (state %s)", ErrInvalidState, c.state)
	}
	gen := c.generation
	c.state = StateAwaitingAugmentation
	c.record = Record{InitialDescription: description, FormContext: formData}
	c.lastActive = time.Now()
	ctx, cancel := context.WithCancel(ctx)
	c.cancelInFlight = cancel
	c.mu.Unlock()
	defer cancel()

	formCtx := formContextLine(formData)

	augStart := time.Now()
	augmented, err := c.generator.Generate(ctx, gateway.Request{
		System:   augmentationPrompt(formCtx, description),
		Prompt:   description,
		Grounded: true,
	})
	c.metrics.ObserveStage("augment", time.Since(augStart).Seconds())
	if err != nil {
		return nil, c.fail(gen, StateIdle, "augment", err)
	}
	if err := c.apply(gen, func() {
		c.record.AugmentedData = augmented.Text
		c.record.Sources = augmented.Sources
		c.state = StateAwaitingQuestions
	}); err != nil {
		return nil, err
	}

	combined := combinedContext(formCtx, description, augmented.Text)
	qStart := time.Now()
	raw, err := c.generator.Generate(ctx, gateway.Request{
		System:   questionsPrompt(combined),
		Prompt:   combined,
		JSONOnly: true,
	})
	c.metrics.ObserveStage("questions", time.Since(qStart).Seconds())
	if err != nil {
		return nil, c.fail(gen, StateIdle, "questions", err)
	}

	questions, degraded := parseQuestions(raw.Text)
	if degraded {
		c.metrics.ObserveDegraded("questions")
		c.logger.Warn("session: question payload unparseable, using canonical question set",
			"payload_bytes", len(raw.Text),
		)
	}

	result := &ReportResult{
		Augmented:         augmented.Text,
		Sources:           augmented.Sources,
		Questions:         questions,
		QuestionsDegraded: degraded,
	}

	if len(questions) > 0 {
		if err := c.apply(gen, func() {
			c.record.Questions = questions
			c.questionIndex = 0
			c.state = StateAskingQuestion
		}); err != nil {
			return nil, err
		}
		result.NextQuestion = questions[0]
		result.State = StateAskingQuestion
		return result, nil
	}

	// Nothing to ask: go straight to summarization.
	if err := c.apply(gen, func() { c.state = StateAwaitingSummary }); err != nil {
		return nil, err
	}
	summary, needs, needsDegraded, err := c.runSummaryStages(ctx, gen)
	if err != nil {
		return nil, c.fail(gen, StateIdle, "summary", err)
	}
	result.Summary = summary
	result.Needs = needs
	result.NeedsDegraded = needsDegraded
	result.State = StateReadyForStrategy
	return result, nil
}

// SubmitAnswer records the answer to the pending question. Intermediate
// answers return the next question without any network call; the final
// answer triggers summarization and needs extraction. If summarization
// fails, the final answer is rolled back so resubmitting it retries.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (*AnswerResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	c.mu.Lock()
	if c.state != StateAskingQuestion {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no question pending (state %s)", ErrInvalidState, c.state)
	}
	question := c.record.Questions[c.questionIndex]
	c.record.Answers = append(c.record.Answers, Answer{Question: question, Answer: answer})
	c.questionIndex++
	c.lastActive = time.Now()

	if c.questionIndex < len(c.record.Questions) {
		next := c.record.Questions[c.questionIndex]
		c.mu.Unlock()
		return &AnswerResult{NextQuestion: next, State: StateAskingQuestion}, nil
	}

	gen := c.generation
	c.state = StateAwaitingSummary
	ctx, cancel := context.WithCancel(ctx)
	c.cancelInFlight = cancel
	c.mu.Unlock()
	defer cancel()

	summary, needs, needsDegraded, err := c.runSummaryStages(ctx, gen)
	if err != nil {
		// Roll back the final answer so the retry path is a plain resubmit.
		if applyErr := c.apply(gen, func() {
			c.record.Answers = c.record.Answers[:len(c.record.Answers)-1]
			c.questionIndex--
			c.state = StateAskingQuestion
			c.cancelInFlight = nil
		}); applyErr != nil {
			return nil, applyErr
		}
		return nil, err
	}
	return &AnswerResult{
		Done:          true,
		Summary:       summary,
		Needs:         needs,
		NeedsDegraded: needsDegraded,
		State:         StateReadyForStrategy,
	}, nil
}

// runSummaryStages performs the summary and needs-extraction calls and
// advances the state to ReadyForStrategy. A terminal failure during needs
// extraction degrades to the canonical fallback instead of failing: by that
// point the user has answered everything and must not be sent backwards.
func (c *Controller) runSummaryStages(ctx context.Context, gen uint64) (string, *planner.StructuredNeeds, bool, error) {
	collected, err := json.MarshalIndent(c.Record(), "", "  ")
	if err != nil {
		return "", nil, false, fmt.Errorf("session: encode collected data: %w", err)
	}

	sumStart := time.Now()
	summary, err := c.generator.Generate(ctx, gateway.Request{
		System: summaryPrompt(string(collected)),
		Prompt: string(collected),
	})
	c.metrics.ObserveStage("summary", time.Since(sumStart).Seconds())
	if err != nil {
		return "", nil, false, err
	}
	if err := c.apply(gen, func() {
		c.record.FinalSummary = summary.Text
		c.state = StateAwaitingNeeds
	}); err != nil {
		return "", nil, false, err
	}

	var (
		needs    planner.StructuredNeeds
		degraded bool
	)
	needsStart := time.Now()
	raw, err := c.generator.Generate(ctx, gateway.Request{
		System:   needsPrompt(summary.Text),
		Prompt:   summary.Text,
		JSONOnly: true,
	})
	c.metrics.ObserveStage("needs", time.Since(needsStart).Seconds())
	switch {
	case err == nil:
		needs, degraded = planner.ParseNeeds(raw.Text)
	case gateway.IsTerminal(err):
		c.logger.Warn("session: needs extraction failed, using fallback locations", "error", err)
		needs, degraded = planner.FallbackNeeds(), true
	default:
		return "", nil, false, err
	}
	if degraded {
		c.metrics.ObserveDegraded("needs")
	}

	if err := c.apply(gen, func() {
		c.record.ParsedNeeds = &needs
		c.state = StateReadyForStrategy
		c.cancelInFlight = nil
	}); err != nil {
		return "", nil, false, err
	}
	return summary.Text, &needs, degraded, nil
}

// SelectStrategy records the distribution strategy and completes data
// collection. Re-selection is allowed after completion so a failed plan
// request can be retried with a different strategy.
func (c *Controller) SelectStrategy(value string) (planner.Strategy, error) {
	strategy, err := planner.ParseStrategy(value)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReadyForStrategy && c.state != StateTerminal {
		return "", fmt.Errorf("%w: data collection not complete (state %s)", ErrInvalidState, c.state)
	}
	c.record.Strategy = strategy
	c.state = StateTerminal
	c.lastActive = time.Now()
	return strategy, nil
}

// PlanRequest builds the backend payload from the completed session.
func (c *Controller) PlanRequest(tuning planner.Tuning) (planner.PlanRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateTerminal {
		return planner.PlanRequest{}, fmt.Errorf("%w: strategy not selected (state %s)", ErrInvalidState, c.state)
	}
	return c.record.PlanRequest(tuning)
}

// AdoptRecord replaces the session contents with a previously saved record,
// re-validating its needs, and puts the session in the completed state. Used
// when a saved plan is loaded for display.
func (c *Controller) AdoptRecord(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	needs, degraded := planner.ValidateNeeds(rec.ParsedNeeds)
	if degraded {
		c.metrics.ObserveDegraded("load")
		c.logger.Warn("session: saved record carried invalid needs, substituted fallback")
	}
	rec.ParsedNeeds = &needs
	c.record = rec
	c.questionIndex = len(rec.Questions)
	c.state = StateTerminal
}

// StartOver discards all collected data and cancels any in-flight call.
// Safe to call from any state, including while another operation is blocked
// on the gateway.
func (c *Controller) StartOver() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// reset must be called with mu held.
func (c *Controller) reset() {
	c.generation++
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
	c.record = Record{}
	c.questionIndex = 0
	c.state = StateIdle
	c.lastActive = time.Now()
}

// fail reverts to a safe state after a stage error, unless the session was
// reset underneath the operation.
func (c *Controller) fail(gen uint64, revertTo State, stage string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSessionReset
	}
	c.cancelInFlight = nil
	c.state = revertTo
	c.logger.Error("session: stage failed", "stage", stage, "error", err)
	return err
}

// apply runs a state mutation only if the session has not been reset since
// the operation started.
func (c *Controller) apply(gen uint64, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSessionReset
	}
	fn()
	c.lastActive = time.Now()
	return nil
}
