package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hmorsi/coursewright/internal/curriculum"
)

func testInput() curriculum.ProgramInput {
	return curriculum.ProgramInput{
		Name:     "Electrical Installation",
		Sector:   "construction",
		Overview: "Prepares learners for domestic and commercial installation work.",
		Modules: []curriculum.ModuleInput{
			{Title: "Wiring Fundamentals", Hours: 4, Outcomes: []string{"Identify cable types"}},
		},
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenMemoryStore()
	if err != nil {
		t.Fatalf("OpenMemoryStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := &Job{ID: "job-1", Status: StatusQueued, Input: testInput()}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != StatusQueued {
		t.Errorf("status = %s, want queued", got.Status)
	}
	if got.Input.Name != "Electrical Installation" {
		t.Errorf("input name = %q, round trip lost the input", got.Input.Name)
	}

	job.Status = StatusRunning
	job.Stage = StageValidate
	job.Progress = 5
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	got, err = store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob after update: %v", err)
	}
	if got.Status != StatusRunning || got.Stage != StageValidate || got.Progress != 5 {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestStoreJobNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
	err = store.UpdateJob(context.Background(), &Job{ID: "missing"})
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("update err = %v, want ErrJobNotFound", err)
	}
}

func TestStoreCheckpoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateJob(ctx, &Job{ID: "job-1", Status: StatusRunning, Input: testInput()}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := store.SaveCheckpoint(ctx, "job-1", StageValidate, []byte(`{"errors":null,"warnings":null}`)); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if err := store.SaveCheckpoint(ctx, "job-1", StageRetrieve, []byte(`["src-1"]`)); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	// Re-committing a stage replaces its payload.
	if err := store.SaveCheckpoint(ctx, "job-1", StageRetrieve, []byte(`["src-1","src-2"]`)); err != nil {
		t.Fatalf("SaveCheckpoint replace: %v", err)
	}

	cps, err := store.LoadCheckpoints(ctx, "job-1")
	if err != nil {
		t.Fatalf("LoadCheckpoints: %v", err)
	}
	if len(cps) != 2 {
		t.Fatalf("checkpoints = %d, want 2", len(cps))
	}
	if string(cps[StageRetrieve]) != `["src-1","src-2"]` {
		t.Errorf("retrieve payload = %s", cps[StageRetrieve])
	}
}

func TestStoreResultRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateJob(ctx, &Job{ID: "job-1", Status: StatusRunning, Input: testInput()}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := store.GetResult(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetResult before save: %v", err)
	}
	if got != nil {
		t.Errorf("result before save = %s, want nil", got)
	}

	if err := store.SaveResult(ctx, "job-1", []byte(`{"program_name":"x"}`)); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, err = store.GetResult(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if string(got) != `{"program_name":"x"}` {
		t.Errorf("result = %s", got)
	}
}

func TestStoreListJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := store.CreateJob(ctx, &Job{ID: id, Status: StatusQueued, Input: testInput()}); err != nil {
			t.Fatalf("CreateJob %s: %v", id, err)
		}
	}
	jobs, err := store.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(jobs))
	}
}
