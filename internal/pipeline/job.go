// Package pipeline orchestrates curriculum generation as a sequence of
// checkpointed stages. Jobs are persisted after every stage, resume from the
// last committed checkpoint, and report progress through pluggable sinks.
package pipeline

import (
	"time"

	"github.com/hmorsi/coursewright/internal/curriculum"
)

// Status is the lifecycle state of a generation job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Stage identifies one step of the generation pipeline.
type Stage string

const (
	StageValidate    Stage = "validate"
	StageRetrieve    Stage = "retrieve"
	StageProgramSpec Stage = "generate_program_spec"
	StageUnitSpecs   Stage = "generate_unit_specs"
	StageAssessments Stage = "generate_assessments"
	StageSkillBook   Stage = "generate_skill_book"
	StageQA          Stage = "qa"
	StageBenchmark   Stage = "benchmark"
	StageComplete    Stage = "complete"
)

// Stages is the pipeline in execution order.
var Stages = []Stage{
	StageValidate,
	StageRetrieve,
	StageProgramSpec,
	StageUnitSpecs,
	StageAssessments,
	StageSkillBook,
	StageQA,
	StageBenchmark,
	StageComplete,
}

// stageMilestones maps each completed stage to the job's overall progress
// percentage.
var stageMilestones = map[Stage]int{
	StageValidate:    5,
	StageRetrieve:    15,
	StageProgramSpec: 30,
	StageUnitSpecs:   55,
	StageAssessments: 75,
	StageSkillBook:   85,
	StageQA:          92,
	StageBenchmark:   97,
	StageComplete:    100,
}

// Job is one curriculum generation run.
type Job struct {
	ID        string                  `json:"id"`
	Status    Status                  `json:"status"`
	Stage     Stage                   `json:"stage"`
	Progress  int                     `json:"progress"`
	Input     curriculum.ProgramInput `json:"input"`
	Error     string                  `json:"error,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}
