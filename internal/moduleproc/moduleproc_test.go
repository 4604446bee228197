package moduleproc

import (
	"context"
	"testing"

	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/rdata"
)

type recordingModule struct {
	name     string
	priority int
	verdict  Verdict
	ran      *[]string
}

func (m *recordingModule) Name() string     { return m.name }
func (m *recordingModule) Priority() int    { return m.priority }
func (m *recordingModule) Process(ctx context.Context, d *rdata.Data, tx sip.ServerTransaction) Verdict {
	*m.ran = append(*m.ran, m.name)
	return m.verdict
}

func TestChainRunsInPriorityOrder(t *testing.T) {
	var ran []string
	c := NewChain(
		&recordingModule{name: "late", priority: 100, verdict: Continue, ran: &ran},
		&recordingModule{name: "early", priority: 1, verdict: Continue, ran: &ran},
		&recordingModule{name: "mid", priority: 50, verdict: Continue, ran: &ran},
	)

	c.Run(context.Background(), nil, nil)

	want := []string{"early", "mid", "late"}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("ran = %v, want %v", ran, want)
		}
	}
}

func TestChainStopsOnStopVerdict(t *testing.T) {
	var ran []string
	c := NewChain(
		&recordingModule{name: "first", priority: 1, verdict: Stop, ran: &ran},
		&recordingModule{name: "second", priority: 2, verdict: Continue, ran: &ran},
	)

	c.Run(context.Background(), nil, nil)

	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("ran = %v, want [first]", ran)
	}
}

func TestRunFromResumesAfterIndex(t *testing.T) {
	var ran []string
	c := NewChain(
		&recordingModule{name: "a", priority: 1, verdict: Continue, ran: &ran},
		&recordingModule{name: "b", priority: 2, verdict: Continue, ran: &ran},
		&recordingModule{name: "c", priority: 3, verdict: Continue, ran: &ran},
	)

	idx := c.IndexOf("b")
	c.RunFrom(context.Background(), nil, nil, idx+1)

	if len(ran) != 1 || ran[0] != "c" {
		t.Fatalf("ran = %v, want [c]", ran)
	}
}

func TestIndexOfUnknownModule(t *testing.T) {
	c := NewChain()
	if idx := c.IndexOf("missing"); idx != -1 {
		t.Fatalf("IndexOf(missing) = %d, want -1", idx)
	}
}
