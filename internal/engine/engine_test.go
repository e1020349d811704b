package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qobs-build/sm/internal/builder/gen"
	"github.com/qobs-build/sm/internal/project"
)

func init() {
	color.NoColor = true
}

// fakeRunner records every invocation and fails the one at position failAt
// (1-based). A zero failAt never fails.
type fakeRunner struct {
	calls    []string
	failAt   int
	spawnErr error
	stderr   string
	cancel   context.CancelFunc
}

func (r *fakeRunner) Run(_ context.Context, inv gen.Invocation) (Result, error) {
	r.calls = append(r.calls, inv.String())
	if r.cancel != nil {
		r.cancel()
	}
	if len(r.calls) != r.failAt {
		return Result{}, nil
	}
	if r.spawnErr != nil {
		return Result{ExitCode: -1}, r.spawnErr
	}
	return Result{ExitCode: 1, Stderr: []byte(r.stderr)}, nil
}

func compile(src, obj string) gen.Invocation {
	return gen.Invocation{
		Stage:   gen.StageCompile,
		Program: "g++",
		Args:    []string{"-std=c++11", "-O1", "-Wall", "-c", src, "-o", obj},
		Verb:    "Compiling",
		Subject: src,
	}
}

func staticPipeline() *gen.Pipeline {
	return &gen.Pipeline{
		Mode: project.ModeStatic,
		Compile: []gen.Invocation{
			compile("src/a.cpp", ".sm/0.o"),
			compile("src/b.cpp", ".sm/1.o"),
			compile("src/c.cpp", ".sm/2.o"),
		},
		Library: gen.Invocation{
			Stage:   gen.StageLibrary,
			Program: "ar",
			Args:    []string{"rcs", "lib/libdemo.a", ".sm/0.o", ".sm/1.o", ".sm/2.o"},
			Verb:    "Archiving",
			Subject: "lib/libdemo.a",
		},
		Link: gen.Invocation{
			Stage:   gen.StageLink,
			Program: "g++",
			Args:    []string{"-std=c++11", "-O1", "main.cpp", "-o", "bin/demo", "-Llib", "-ldemo", "-Iinc", "-Wall"},
			Verb:    "Linking",
			Subject: "bin/demo",
		},
		Objects:    []string{".sm/0.o", ".sm/1.o", ".sm/2.o"},
		LibraryOut: "lib/libdemo.a",
		Executable: "bin/demo",
	}
}

func dynamicPipeline() *gen.Pipeline {
	return &gen.Pipeline{
		Mode: project.ModeDynamic,
		Library: gen.Invocation{
			Stage:   gen.StageLibrary,
			Program: "g++",
			Args:    []string{"-shared", "-fPIC", "-std=c++11", "-O1", "src/a.cpp", "-o", "lib/libdemo.so"},
			Verb:    "Linking",
			Subject: "lib/libdemo.so",
		},
		Link: gen.Invocation{
			Stage:   gen.StageLink,
			Program: "g++",
			Args:    []string{"-std=c++11", "-O1", "main.cpp", "-o", "bin/demo", "-Llib", "-ldemo", "-Iinc"},
			Verb:    "Linking",
			Subject: "bin/demo",
		},
		LibraryOut: "lib/libdemo.so",
		Executable: "bin/demo",
	}
}

func TestExecuteStaticCompletes(t *testing.T) {
	p := staticPipeline()
	runner := &fakeRunner{}
	var out bytes.Buffer

	report, err := New(runner, &out).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, report.Succeeded())
	assert.Equal(t, p.Commands(), runner.calls)
	assert.Equal(t, p.Commands(), report.Executed)
	assert.Nil(t, report.Failed)
	assert.NotEqual(t, uuid.Nil, report.ID)

	if diff := cmp.Diff([]State{Start, CompilingObjects, PackagingLibrary, LinkingExecutable, Completed}, report.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	text := out.String()
	assert.Contains(t, text, "[1/3] Compiling src/a.cpp")
	assert.Contains(t, text, "[3/3] Compiling src/c.cpp")
	assert.Contains(t, text, "Archiving lib/libdemo.a")
	assert.Contains(t, text, "Finished bin/demo")
}

func TestExecuteDynamicSkipsCompilation(t *testing.T) {
	p := dynamicPipeline()
	runner := &fakeRunner{}

	report, err := New(runner, &bytes.Buffer{}).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []State{Start, PackagingLibrary, LinkingExecutable, Completed}, report.History)
	assert.Equal(t, []string{p.Library.String(), p.Link.String()}, runner.calls)
}

func TestExecuteFirstCompileFails(t *testing.T) {
	p := staticPipeline()
	runner := &fakeRunner{failAt: 1, stderr: "src/a.cpp:1:1: error: expected ';'"}
	var out bytes.Buffer

	report, err := New(runner, &out).Execute(context.Background(), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)

	var aerr *AbortError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 1, aerr.Failure.ExitCode)

	assert.Equal(t, Aborted, report.State)
	assert.Equal(t, []State{Start, CompilingObjects, Aborted}, report.History)
	assert.Equal(t, []string{p.Compile[0].String()}, runner.calls)
	require.NotNil(t, report.Failed)
	assert.Equal(t, CompilingObjects, report.Failed.State)
	assert.Equal(t, p.Compile[0].String(), report.Failed.Command)

	text := out.String()
	assert.Contains(t, text, "expected ';'")
	assert.Contains(t, text, p.Compile[0].String())
	assert.Equal(t, 1, strings.Count(text, "aborting due to previous error"))
	assert.NotContains(t, text, "Archiving")
	assert.NotContains(t, text, "Finished")
}

func TestExecuteShortCircuits(t *testing.T) {
	for k := 1; k <= 5; k++ {
		p := staticPipeline()
		runner := &fakeRunner{failAt: k}

		report, err := New(runner, &bytes.Buffer{}).Execute(context.Background(), p)
		require.ErrorIs(t, err, ErrAborted)

		assert.Equal(t, p.Commands()[:k], runner.calls, "failure at invocation %d", k)
		assert.Equal(t, runner.calls, report.Executed)
	}
}

func TestExecuteLinkFailure(t *testing.T) {
	p := staticPipeline()
	runner := &fakeRunner{failAt: 5}

	report, err := New(runner, &bytes.Buffer{}).Execute(context.Background(), p)
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, LinkingExecutable, report.Failed.State)
	assert.Equal(t, []State{Start, CompilingObjects, PackagingLibrary, LinkingExecutable, Aborted}, report.History)
}

func TestExecuteSpawnFailure(t *testing.T) {
	spawnErr := errors.New("exec: \"g++\": executable file not found in $PATH")
	p := staticPipeline()
	runner := &fakeRunner{failAt: 2, spawnErr: spawnErr}

	report, err := New(runner, &bytes.Buffer{}).Execute(context.Background(), p)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, spawnErr)
	assert.Equal(t, spawnErr.Error(), report.Failed.Error)
	assert.Len(t, runner.calls, 2)
}

func TestExecuteCancelledBetweenInvocations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := staticPipeline()
	runner := &fakeRunner{cancel: cancel}

	report, err := New(runner, &bytes.Buffer{}).Execute(ctx, p)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	// the running invocation finishes, the next one is never spawned
	assert.Equal(t, []string{p.Compile[0].String()}, runner.calls)
	assert.Equal(t, Aborted, report.State)
}

func TestExecuteNilPipeline(t *testing.T) {
	_, err := New(&fakeRunner{}, &bytes.Buffer{}).Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestExecuteReusesEngine(t *testing.T) {
	e := New(&fakeRunner{}, &bytes.Buffer{})

	first, err := e.Execute(context.Background(), dynamicPipeline())
	require.NoError(t, err)
	second, err := e.Execute(context.Background(), dynamicPipeline())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.History, second.History)
}

func TestStateText(t *testing.T) {
	for s := Start; s <= Completed; s++ {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back State
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("sleeping")))
	assert.Equal(t, "State(42)", State(42).String())
	assert.True(t, Aborted.Terminal())
	assert.True(t, Completed.Terminal())
	assert.False(t, LinkingExecutable.Terminal())
}
