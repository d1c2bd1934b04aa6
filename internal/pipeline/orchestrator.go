package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/curriculum"
	"github.com/hmorsi/coursewright/internal/generator"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

// QAChecker verifies a finished curriculum's structure and confidence.
type QAChecker interface {
	Check(c *curriculum.Curriculum) curriculum.QAReport
}

// Benchmarker compares the generated programme against competing provision.
type Benchmarker interface {
	Run(ctx context.Context, input curriculum.ProgramInput, units []curriculum.UnitSpec) (curriculum.BenchmarkReport, error)
}

const defaultConcurrency = 3

// Orchestrator runs generation jobs through the staged pipeline, committing
// a checkpoint after every stage so an interrupted job resumes from the last
// committed stage instead of starting over.
type Orchestrator struct {
	store       Store
	gen         *generator.Generator
	retriever   retrieval.Retriever
	qa          QAChecker
	bench       Benchmarker
	sink        Sink
	queue       *Queue
	log         *zap.Logger
	concurrency int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSink sets the progress sink.
func WithSink(s Sink) OrchestratorOption {
	return func(o *Orchestrator) { o.sink = s }
}

// WithQueue attaches an async job queue. Without one, jobs run only when
// Run is called directly.
func WithQueue(q *Queue) OrchestratorOption {
	return func(o *Orchestrator) { o.queue = q }
}

// WithConcurrency bounds the per-stage fan-out width.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.concurrency = n }
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(store Store, gen *generator.Generator, retriever retrieval.Retriever, qa QAChecker, bench Benchmarker, log *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		gen:         gen,
		retriever:   retriever,
		qa:          qa,
		bench:       bench,
		log:         log,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// StartJob records a new job and, when a queue is attached, schedules it for
// a worker. It returns immediately with the job id.
func (o *Orchestrator) StartJob(ctx context.Context, input curriculum.ProgramInput) (string, error) {
	job := &Job{
		ID:     uuid.NewString(),
		Status: StatusQueued,
		Input:  input,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("creating job: %w", err)
	}
	if o.queue != nil {
		if err := o.queue.Enqueue(job.ID); err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
			if uerr := o.store.UpdateJob(ctx, job); uerr != nil {
				o.log.Error("marking unqueued job failed", zap.Error(uerr))
			}
			return "", fmt.Errorf("scheduling job: %w", err)
		}
	}
	return job.ID, nil
}

// Run executes a job to completion, resuming from its last committed
// checkpoint. Cancellation is honored only between stages; a stage that has
// started runs to its end.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	checkpoints, err := o.store.LoadCheckpoints(ctx, jobID)
	if err != nil {
		return err
	}

	state := &jobState{input: job.Input}
	if err := restoreState(state, checkpoints); err != nil {
		return fmt.Errorf("restoring job state: %w", err)
	}

	job.Status = StatusRunning
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	for _, stage := range Stages {
		if _, done := checkpoints[stage]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return o.fail(job, stage, fmt.Errorf("cancelled before stage: %w", err))
		}

		o.log.Info("stage starting",
			zap.String("job_id", job.ID),
			zap.String("stage", string(stage)))

		// Announce the stage before its work so clients watching progress
		// see long-running stages as they begin, not only once committed.
		job.Stage = stage
		job.Progress = stageMilestones[stage]
		o.publish(job, fmt.Sprintf("stage %s starting", stage))

		payload, err := o.runStage(ctx, stage, job, state)
		if err != nil {
			return o.fail(job, stage, err)
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return o.fail(job, stage, fmt.Errorf("marshaling checkpoint: %w", err))
		}
		if err := o.store.SaveCheckpoint(ctx, job.ID, stage, data); err != nil {
			return o.fail(job, stage, err)
		}

		if stage == StageComplete {
			job.Status = StatusCompleted
		}
		if err := o.store.UpdateJob(ctx, job); err != nil {
			return o.fail(job, stage, err)
		}
		o.publish(job, fmt.Sprintf("stage %s committed", stage))
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, job *Job, state *jobState) (any, error) {
	switch stage {
	case StageValidate:
		if err := o.stageValidate(state); err != nil {
			return nil, err
		}
		return state.validation, nil
	case StageRetrieve:
		if err := o.stageRetrieve(ctx, state); err != nil {
			return nil, err
		}
		return state.sourceIDs, nil
	case StageProgramSpec:
		if err := o.stageProgramSpec(ctx, state); err != nil {
			return nil, err
		}
		return state.programSpec, nil
	case StageUnitSpecs:
		if err := o.stageUnitSpecs(ctx, state); err != nil {
			return nil, err
		}
		return state.units, nil
	case StageAssessments:
		if err := o.stageAssessments(ctx, state); err != nil {
			return nil, err
		}
		return state.assessments, nil
	case StageSkillBook:
		if err := o.stageSkillBook(ctx, state); err != nil {
			return nil, err
		}
		return state.skillBook, nil
	case StageQA:
		if err := o.stageQA(state); err != nil {
			return nil, err
		}
		return state.qaReport, nil
	case StageBenchmark:
		if err := o.stageBenchmark(ctx, state); err != nil {
			return nil, err
		}
		return state.benchmark, nil
	case StageComplete:
		c := state.assemble(job.ID, job.Input.Name)
		c.GeneratedAt = time.Now().UTC()
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshaling curriculum: %w", err)
		}
		if err := o.store.SaveResult(ctx, job.ID, data); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

func (o *Orchestrator) fail(job *Job, stage Stage, err error) error {
	job.Status = StatusFailed
	job.Stage = stage
	job.Error = fmt.Sprintf("stage %s: %v", stage, err)
	if uerr := o.store.UpdateJob(context.Background(), job); uerr != nil {
		o.log.Error("marking job failed", zap.String("job_id", job.ID), zap.Error(uerr))
	}
	o.publish(job, job.Error)
	return fmt.Errorf("stage %s: %w", stage, err)
}

func (o *Orchestrator) publish(job *Job, message string) {
	if o.sink == nil {
		return
	}
	o.sink.Publish(Event{
		JobID:     job.ID,
		Stage:     job.Stage,
		Progress:  job.Progress,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// restoreState rebuilds the in-memory stage artifacts from committed
// checkpoints so a resumed job picks up exactly where it stopped.
func restoreState(state *jobState, checkpoints map[Stage][]byte) error {
	targets := map[Stage]any{
		StageValidate:    &state.validation,
		StageRetrieve:    &state.sourceIDs,
		StageProgramSpec: &state.programSpec,
		StageUnitSpecs:   &state.units,
		StageAssessments: &state.assessments,
		StageSkillBook:   &state.skillBook,
		StageQA:          &state.qaReport,
		StageBenchmark:   &state.benchmark,
	}
	for stage, target := range targets {
		payload, ok := checkpoints[stage]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("checkpoint %s: %w", stage, err)
		}
	}
	return nil
}
