package manager

import (
	"context"
	"testing"

	"github.com/dukex/sagaflow/pkg/events"
	"github.com/dukex/sagaflow/pkg/models"
	"github.com/dukex/sagaflow/pkg/registry"
	"github.com/dukex/sagaflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	procA = models.NewProcess("svc", "a")
	procB = models.NewProcess("svc", "b")
	procC = models.NewProcess("svc", "c")
	procD = models.NewProcess("svc", "d")
	procP = models.NewProcess("orders", "place")
	procQ = models.NewProcess("billing", "charge")
	procR = models.NewProcess("stock", "reserve")

	undoA = models.NewProcess("svc", "undo-a")
	undoB = models.NewProcess("svc", "undo-b")
	undoC = models.NewProcess("svc", "undo-c")
)

func newTestExecutor(t *testing.T, rollbacks *models.RollbackTable, workflows map[string]models.Workflow) (*Executor, *registry.Registry) {
	t.Helper()

	reg := registry.NewRegistry(testLogger())
	for version, w := range workflows {
		reg.Register("checkout", models.NewWorkflowTriple(w, version))
	}

	return NewExecutor(testLogger(), reg, rollbacks), reg
}

var testLogger = testutil.Logger

func report(status events.Status, process models.Process, version string) *events.ToManager {
	overrides := []func(*events.ToManager){
		testutil.WithStatus(status),
		testutil.WithUUID("7d2b7f0e-1111-2222-3333-444455556666"),
	}

	if version != "" {
		overrides = append(overrides, testutil.WithVersion(version))
	}

	return testutil.CreateStatusReport(process, overrides...)
}

func processesOf(triggers []Trigger) []models.Process {
	out := make([]models.Process, 0, len(triggers))
	for _, tr := range triggers {
		out = append(out, tr.Message.Process)
	}

	return out
}

func TestExecutor_ResolveVersion(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB}},
		"v2": {procA: {procC}},
		"v3": {procA: {procD}},
	})
	ctx := context.Background()

	version, err := exec.ResolveVersion(ctx, report(events.StatusSuccess, procA, ""))
	require.NoError(t, err)
	assert.Equal(t, "v3", version)

	version, err = exec.ResolveVersion(ctx, report(events.StatusSuccess, procA, "v1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", version)

	unknown := report(events.StatusSuccess, procA, "")
	unknown.Name = "refund"

	_, err = exec.ResolveVersion(ctx, unknown)
	assert.True(t, registry.IsWorkflowNotFound(err))
}

func TestExecutor_ExplicitVersionWinsOverLatest(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB}},
		"v2": {procA: {procC}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusSuccess, procA, "v1"))
	require.NoError(t, err)
	assert.Equal(t, []models.Process{procB}, processesOf(triggers))
	assert.Equal(t, "v1", triggers[0].Message.Version)

	triggers, err = exec.Plan(context.Background(), report(events.StatusSuccess, procA, ""))
	require.NoError(t, err)
	assert.Equal(t, []models.Process{procC}, processesOf(triggers))
	assert.Equal(t, "v2", triggers[0].Message.Version, "trigger carries the resolved version")
}

func TestExecutor_ForwardFanOut(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procP: {procQ, procR}},
	})

	in := report(events.StatusSuccess, procP, "v1")

	triggers, err := exec.Plan(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, triggers, 2)

	assert.Equal(t, []models.Process{procQ, procR}, processesOf(triggers))

	for _, tr := range triggers {
		assert.Equal(t, events.TriggerKindForward, tr.Kind)
		assert.Equal(t, in.UUID, tr.Message.UUID)
		assert.Equal(t, in.Name, tr.Message.Name)
		assert.Equal(t, "v1", tr.Message.Version)
		assert.Equal(t, in.Schema, tr.Message.Schema)
		assert.JSONEq(t, `{"order":42}`, string(tr.Message.Data))
	}
}

func TestExecutor_ForwardDuplicateTargetsPreserved(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB, procB}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusSuccess, procA, "v1"))
	require.NoError(t, err)
	assert.Equal(t, []models.Process{procB, procB}, processesOf(triggers))
}

func TestExecutor_ForwardMisses(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB}, procB: {procC}},
	})
	ctx := context.Background()

	unknownName := report(events.StatusSuccess, procA, "v1")
	unknownName.Name = "refund"
	_, err := exec.Plan(ctx, unknownName)
	assert.True(t, registry.IsWorkflowNotFound(err))

	_, err = exec.Plan(ctx, report(events.StatusSuccess, procA, "v7"))
	assert.True(t, registry.IsVersionNotFound(err))

	_, err = exec.Plan(ctx, report(events.StatusSuccess, procD, "v1"))
	assert.True(t, registry.IsProcessNotFound(err))
	assert.True(t, registry.IsLookupMiss(err))
}

func TestExecutor_ForwardTerminalProcess(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB}, procB: {procC}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusSuccess, procC, "v1"))
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestExecutor_InProgress(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusInProgress, procA, "v1"))
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestExecutor_UnknownStatus(t *testing.T) {
	exec, _ := newTestExecutor(t, nil, map[string]models.Workflow{
		"v1": {procA: {procB}},
	})

	_, err := exec.Plan(context.Background(), report("Paused", procA, "v1"))
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestExecutor_CompensationCascade(t *testing.T) {
	chain := map[string]models.Workflow{"v1": {procA: {procB}, procB: {procC}}}

	t.Run("all predecessors have rollbacks", func(t *testing.T) {
		rollbacks := models.NewRollbackTable()
		rollbacks.Add(procA, undoA)
		rollbacks.Add(procB, undoB)

		exec, _ := newTestExecutor(t, rollbacks, chain)

		in := report(events.StatusFailed, procC, "v1")

		triggers, err := exec.Plan(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, []models.Process{undoB, undoA}, processesOf(triggers))

		for _, tr := range triggers {
			assert.Equal(t, events.TriggerKindRollback, tr.Kind)
			assert.Equal(t, in.UUID, tr.Message.UUID)
			assert.Equal(t, "v1", tr.Message.Version)
			assert.JSONEq(t, `{"order":42}`, string(tr.Message.Data))
		}
	})

	t.Run("missing rollback still cascades", func(t *testing.T) {
		rollbacks := models.NewRollbackTable()
		rollbacks.Add(procB, undoB)

		exec, _ := newTestExecutor(t, rollbacks, chain)

		triggers, err := exec.Plan(context.Background(), report(events.StatusFailed, procC, "v1"))
		require.NoError(t, err)
		assert.Equal(t, []models.Process{undoB}, processesOf(triggers))
	})

	t.Run("gap in the middle", func(t *testing.T) {
		rollbacks := models.NewRollbackTable()
		rollbacks.Add(procA, undoA)

		exec, _ := newTestExecutor(t, rollbacks, chain)

		triggers, err := exec.Plan(context.Background(), report(events.StatusFailed, procC, "v1"))
		require.NoError(t, err)
		assert.Equal(t, []models.Process{undoA}, processesOf(triggers), "B has no rollback but A is still reached")
	})

	t.Run("first process has nothing to compensate", func(t *testing.T) {
		rollbacks := models.NewRollbackTable()
		rollbacks.Add(procA, undoA)

		exec, _ := newTestExecutor(t, rollbacks, chain)

		triggers, err := exec.Plan(context.Background(), report(events.StatusFailed, procA, "v1"))
		require.NoError(t, err)
		assert.Empty(t, triggers)
	})
}

func TestExecutor_CompensationDiamondVisitsOnce(t *testing.T) {
	// A -> B -> D, A -> C -> D
	rollbacks := models.NewRollbackTable()
	rollbacks.Add(procA, undoA)
	rollbacks.Add(procB, undoB)
	rollbacks.Add(procC, undoC)

	exec, _ := newTestExecutor(t, rollbacks, map[string]models.Workflow{
		"v1": {procA: {procB, procC}, procB: {procD}, procC: {procD}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusFailed, procD, "v1"))
	require.NoError(t, err)
	assert.Equal(t, []models.Process{undoB, undoC, undoA}, processesOf(triggers))
}

func TestExecutor_CompensationTerminatesOnCycle(t *testing.T) {
	rollbacks := models.NewRollbackTable()
	rollbacks.Add(procA, undoA)
	rollbacks.Add(procB, undoB)

	exec, _ := newTestExecutor(t, rollbacks, map[string]models.Workflow{
		"v1": {procA: {procB}, procB: {procC, procA}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusFailed, procC, "v1"))
	require.NoError(t, err)
	assert.Equal(t, []models.Process{undoB, undoA}, processesOf(triggers))
}

func TestExecutor_CompensationMultipleRollbacks(t *testing.T) {
	audit := models.NewProcess("audit", "record")

	rollbacks := models.NewRollbackTable()
	rollbacks.Add(procA, undoA)
	rollbacks.Add(procA, audit)

	exec, _ := newTestExecutor(t, rollbacks, map[string]models.Workflow{
		"v1": {procA: {procB}},
	})

	triggers, err := exec.Plan(context.Background(), report(events.StatusFailed, procB, "v1"))
	require.NoError(t, err)
	assert.Equal(t, []models.Process{undoA, audit}, processesOf(triggers))
}

func TestExecutor_CompensationMisses(t *testing.T) {
	exec, _ := newTestExecutor(t, models.NewRollbackTable(), map[string]models.Workflow{
		"v1": {procA: {procB}},
	})

	_, err := exec.Plan(context.Background(), report(events.StatusFailed, procB, "v2"))
	assert.True(t, registry.IsVersionNotFound(err))

	unknown := report(events.StatusFailed, procB, "")
	unknown.Name = "refund"
	_, err = exec.Plan(context.Background(), unknown)
	assert.True(t, registry.IsWorkflowNotFound(err))
}
