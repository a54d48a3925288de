package completion

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/nexusctl/internal/protocol/wire"
	"github.com/danmuck/nexusctl/internal/registry"
	"github.com/danmuck/nexusctl/internal/testutil/testlog"
)

type fakeExecutor struct {
	payloads map[string]string
	err      error
	calls    []string
}

func (f *fakeExecutor) CompleteExecute(service, command string) (wire.Result, error) {
	key := service + "." + command
	f.calls = append(f.calls, key)
	if f.err != nil {
		return wire.Result{}, f.err
	}
	payload, ok := f.payloads[key]
	if !ok {
		return wire.Result{OK: false, Message: "registry: unknown service"}, nil
	}
	return wire.Result{OK: true, Message: payload}, nil
}

func metadata() []registry.ServiceDescriptor {
	return []registry.ServiceDescriptor{
		{
			Name: "volume",
			Doc:  "volume management",
			Commands: []registry.CommandDescriptor{
				{Name: "list", Doc: "list volumes"},
				{Name: "create", Doc: "create a volume", Params: []registry.ParamDescriptor{
					{Label: "volume name", Doc: "name of the new volume"},
					{Label: "device", Doc: "backing device", Completer: "block.list"},
				}},
				{Name: "delete", Doc: "delete a volume", Params: []registry.ParamDescriptor{
					{Label: "volume name", Doc: "volume to remove", Completer: "volume.list"},
				}},
			},
		},
		{
			Name: "block",
			Doc:  "block device inspection",
			Commands: []registry.CommandDescriptor{
				{Name: "list", Doc: "list block devices"},
			},
		},
	}
}

func TestCompleteServicePosition(t *testing.T) {
	testlog.Start(t)
	eng := New(metadata(), nil)

	start, got := eng.Complete("")
	want := []string{"volume", "block", "help", "quit", "exit"}
	if start != 0 || !reflect.DeepEqual(got, want) {
		t.Fatalf("Complete(%q) = %d, %v", "", start, got)
	}

	start, got = eng.Complete("vo")
	if start != 0 || !reflect.DeepEqual(got, []string{"volume"}) {
		t.Fatalf("Complete(%q) = %d, %v", "vo", start, got)
	}
}

func TestCompleteHelpTakesServiceNamesOnly(t *testing.T) {
	testlog.Start(t)
	eng := New(metadata(), nil)

	start, got := eng.Complete("help ")
	if start != 5 || !reflect.DeepEqual(got, []string{"volume", "block"}) {
		t.Fatalf("Complete(%q) = %d, %v", "help ", start, got)
	}
}

func TestCompleteCommandPosition(t *testing.T) {
	testlog.Start(t)
	eng := New(metadata(), nil)

	start, got := eng.Complete("volume ")
	if start != 7 || !reflect.DeepEqual(got, []string{"list", "create", "delete"}) {
		t.Fatalf("Complete(%q) = %d, %v", "volume ", start, got)
	}

	_, got = eng.Complete("volume cr")
	if !reflect.DeepEqual(got, []string{"create"}) {
		t.Fatalf("unexpected candidates: %v", got)
	}

	if _, got = eng.Complete("nosuch "); len(got) != 0 {
		t.Fatalf("unknown service produced candidates: %v", got)
	}
}

func TestCompleteArgumentValues(t *testing.T) {
	testlog.Start(t)
	exec := &fakeExecutor{payloads: map[string]string{
		"volume.list": "  vol0 ,vol1,  vol2  ,",
		"block.list":  "sda, sdb, sdc, nvme0n1",
	}}
	eng := New(metadata(), exec)

	_, got := eng.Complete("volume delete ")
	if !reflect.DeepEqual(got, []string{"vol0", "vol1", "vol2"}) {
		t.Fatalf("unexpected candidates: %v", got)
	}

	_, got = eng.Complete("volume delete vol1")
	if !reflect.DeepEqual(got, []string{"vol1"}) {
		t.Fatalf("unexpected candidates: %v", got)
	}

	// Second create argument resolves through block.list, the first has no
	// completer at all.
	if _, got = eng.Complete("volume create "); len(got) != 0 {
		t.Fatalf("uncompleted parameter produced candidates: %v", got)
	}
	_, got = eng.Complete("volume create data nv")
	if !reflect.DeepEqual(got, []string{"nvme0n1"}) {
		t.Fatalf("unexpected candidates: %v", got)
	}

	wantCalls := []string{"volume.list", "volume.list", "block.list"}
	if !reflect.DeepEqual(exec.calls, wantCalls) {
		t.Fatalf("unexpected nested calls: %v", exec.calls)
	}
}

func TestCompleteDegradesOnExecutorFailure(t *testing.T) {
	testlog.Start(t)
	exec := &fakeExecutor{err: errors.New("request timed out")}
	eng := New(metadata(), exec)

	if _, got := eng.Complete("volume delete "); len(got) != 0 {
		t.Fatalf("failed nested call produced candidates: %v", got)
	}
}

func TestCompleteBeyondDeclaredArity(t *testing.T) {
	testlog.Start(t)
	exec := &fakeExecutor{payloads: map[string]string{"volume.list": "vol0"}}
	eng := New(metadata(), exec)

	if _, got := eng.Complete("volume delete vol0 "); len(got) != 0 {
		t.Fatalf("extra argument position produced candidates: %v", got)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("unexpected nested calls: %v", exec.calls)
	}
}

func TestHint(t *testing.T) {
	testlog.Start(t)
	eng := New(metadata(), nil)

	cases := []struct {
		line string
		want string
	}{
		{"volume create ", "<volume name>"},
		{"volume create data ", "<device>"},
		{"volume create data sda ", ""},
		{"volume create", ""},
		{"volume list ", ""},
		{"nosuch create ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := eng.Hint(tc.line); got != tc.want {
			t.Fatalf("Hint(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestSplitValues(t *testing.T) {
	testlog.Start(t)
	got := SplitValues(" , vol0,  ,vol1 ,")
	if !reflect.DeepEqual(got, []string{"vol0", "vol1"}) {
		t.Fatalf("SplitValues = %v", got)
	}
	if got := SplitValues(""); len(got) != 0 {
		t.Fatalf("SplitValues(\"\") = %v", got)
	}
}
