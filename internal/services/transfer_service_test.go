package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage/memory"
)

type stubPublisher struct {
	mu     sync.Mutex
	events []*amqp.TransferEvent
	err    error
}

func (p *stubPublisher) PublishTransfer(_ context.Context, e *amqp.TransferEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func seedUser(t *testing.T, s *memory.Store, userID string, bins []core.Bin, schedules []core.Schedule) {
	t.Helper()
	ctx := context.Background()
	for _, b := range bins {
		b.UserID = userID
		if err := s.CreateBin(ctx, b); err != nil {
			t.Fatalf("CreateBin: %v", err)
		}
	}
	for _, sc := range schedules {
		sc.UserID = userID
		if err := s.CreateSchedule(ctx, sc); err != nil {
			t.Fatalf("CreateSchedule: %v", err)
		}
	}
}

func TestProcessUser_PersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Vacation", CurrentAmount: core.Money{Cents: 10000}}},
		[]core.Schedule{weeklySchedule("s1", "b1", 20000)})
	pub := &stubPublisher{}
	svc := NewTransferService(store, pub, 1)

	run, err := svc.ProcessUser(ctx, "u1", wednesday)
	if err != nil {
		t.Fatalf("ProcessUser: %v", err)
	}
	if run.Result.Transferred() != 1 {
		t.Fatalf("transferred = %d, want 1", run.Result.Transferred())
	}

	bin, _ := store.GetBin(ctx, "u1", "b1")
	if bin.CurrentAmount.Cents != 15000 {
		t.Errorf("bin balance = %d, want 15000", bin.CurrentAmount.Cents)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	e := pub.events[0]
	if e.BinName != "Vacation" || e.AmountCents != 5000 || e.NewTotalCents != 15000 {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Date != "2024-03-06" || e.Frequency != "weekly" || e.MessageID == "" {
		t.Errorf("unexpected event metadata %+v", e)
	}
}

func TestProcessUser_TransferLogHasOneComponent(t *testing.T) {
	var buf bytes.Buffer
	reqLogger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, nil)}).WithComponent(log.ComponentHTTP)
	ctx := context.WithValue(context.Background(), log.LoggerContextKey, reqLogger)

	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Vacation"}},
		[]core.Schedule{weeklySchedule("s1", "b1", 20000)})
	if _, err := NewTransferService(store, nil, 1).ProcessUser(ctx, "u1", wednesday); err != nil {
		t.Fatalf("ProcessUser: %v", err)
	}

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "Scheduled transfer applied") {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("no transfer log line in %q", buf.String())
	}
	if n := strings.Count(line, "component="); n != 1 {
		t.Errorf("component logged %d times: %q", n, line)
	}
	if !strings.Contains(line, "component=transfer") {
		t.Errorf("missing component=transfer in %q", line)
	}
}

func TestProcessUser_NothingDue(t *testing.T) {
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Vacation"}},
		[]core.Schedule{weeklySchedule("s1", "b1", 20000)})
	pub := &stubPublisher{}

	run, err := NewTransferService(store, pub, 1).ProcessUser(context.Background(), "u1", wednesday.AddDays(1))
	if err != nil {
		t.Fatalf("ProcessUser: %v", err)
	}
	if len(run.Result.Report) != 0 || len(pub.events) != 0 {
		t.Fatalf("expected an empty run, got %+v and %d events", run.Result.Report, len(pub.events))
	}
}

func TestProcessUser_IndependentBinWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{
			{ID: "b1", Name: "Vacation", CurrentAmount: core.Money{Cents: 100}},
			{ID: "b2", Name: "Car", CurrentAmount: core.Money{Cents: 200}},
		},
		[]core.Schedule{
			weeklySchedule("s1", "b1", 400),
			weeklySchedule("s2", "b2", 800),
		})
	boom := errors.New("disk full")
	store.SetBinAmountHook = func(_, binID string) error {
		if binID == "b1" {
			return boom
		}
		return nil
	}
	pub := &stubPublisher{}

	run, err := NewTransferService(store, pub, 1).ProcessUser(ctx, "u1", wednesday)
	if err != nil {
		t.Fatalf("ProcessUser: %v", err)
	}
	if len(run.PersistFailures) != 1 || run.PersistFailures[0].BinID != "b1" || !errors.Is(run.PersistFailures[0].Err, boom) {
		t.Fatalf("persist failures = %+v", run.PersistFailures)
	}
	if run.Result.Transferred() != 2 {
		t.Errorf("computation report should still list both transfers, got %d", run.Result.Transferred())
	}

	b1, _ := store.GetBin(ctx, "u1", "b1")
	b2, _ := store.GetBin(ctx, "u1", "b2")
	if b1.CurrentAmount.Cents != 100 {
		t.Errorf("b1 = %d, want unchanged 100", b1.CurrentAmount.Cents)
	}
	if b2.CurrentAmount.Cents != 400 {
		t.Errorf("b2 = %d, want 400", b2.CurrentAmount.Cents)
	}

	persisted := run.Persisted()
	if len(persisted) != 1 || persisted[0].BinID != "b2" {
		t.Fatalf("persisted = %+v", persisted)
	}
	if len(pub.events) != 1 || pub.events[0].BinID != "b2" {
		t.Fatalf("only the persisted transfer should be published, got %+v", pub.events)
	}
}

func TestProcessUser_MissingBinIsReported(t *testing.T) {
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Vacation"}},
		[]core.Schedule{
			weeklySchedule("orphan", "gone", 400),
			weeklySchedule("s1", "b1", 400),
		})

	run, err := NewTransferService(store, nil, 1).ProcessUser(context.Background(), "u1", wednesday)
	if err != nil {
		t.Fatalf("ProcessUser: %v", err)
	}
	failures := run.Result.Failures()
	if len(failures) != 1 || !errors.Is(failures[0].Err, ErrBinNotFound) {
		t.Fatalf("failures = %+v", failures)
	}
	if run.Result.Transferred() != 1 {
		t.Errorf("transferred = %d, want 1", run.Result.Transferred())
	}
}

func TestProcessUser_PublishFailureDoesNotFailRun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Vacation"}},
		[]core.Schedule{weeklySchedule("s1", "b1", 400)})
	pub := &stubPublisher{err: errors.New("broker down")}

	if _, err := NewTransferService(store, pub, 1).ProcessUser(ctx, "u1", wednesday); err != nil {
		t.Fatalf("ProcessUser: %v", err)
	}
	bin, _ := store.GetBin(ctx, "u1", "b1")
	if bin.CurrentAmount.Cents != 100 {
		t.Errorf("balance = %d, want 100", bin.CurrentAmount.Cents)
	}
}

type failingListStore struct {
	*memory.Store
	failUser string
}

func (s failingListStore) ListBins(ctx context.Context, userID string) ([]core.Bin, error) {
	if userID == s.failUser {
		return nil, errors.New("read failed")
	}
	return s.Store.ListBins(ctx, userID)
}

func TestProcessUser_ReadFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Vacation"}},
		[]core.Schedule{weeklySchedule("s1", "b1", 400)})

	_, err := NewTransferService(failingListStore{Store: store, failUser: "u1"}, nil, 1).ProcessUser(ctx, "u1", wednesday)
	if err == nil {
		t.Fatal("expected an error when bins cannot be read")
	}
	bin, _ := store.GetBin(ctx, "u1", "b1")
	if bin.CurrentAmount.Cents != 0 {
		t.Errorf("nothing should be written, balance = %d", bin.CurrentAmount.Cents)
	}
}

func TestProcessAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "alice",
		[]core.Bin{{ID: "a1", Name: "Trip"}},
		[]core.Schedule{weeklySchedule("sa", "a1", 400)})
	seedUser(t, store, "bob",
		[]core.Bin{{ID: "b1", Name: "Car"}},
		[]core.Schedule{weeklySchedule("sb", "b1", 800)})
	seedUser(t, store, "carol",
		[]core.Bin{{ID: "c1", Name: "House"}},
		[]core.Schedule{weeklySchedule("sc", "c1", 1200)})

	pub := &stubPublisher{}
	svc := NewTransferService(failingListStore{Store: store, failUser: "bob"}, pub, 2)

	summary, err := svc.ProcessAll(ctx, wednesday)
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	want := RunSummary{Users: 3, FailedUsers: 1, Transfers: 2}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}

	a, _ := store.GetBin(ctx, "alice", "a1")
	c, _ := store.GetBin(ctx, "carol", "c1")
	if a.CurrentAmount.Cents != 100 || c.CurrentAmount.Cents != 300 {
		t.Errorf("balances = %d, %d", a.CurrentAmount.Cents, c.CurrentAmount.Cents)
	}
	if len(pub.events) != 2 {
		t.Errorf("published %d events, want 2", len(pub.events))
	}
}

func TestProcessAll_RepeatedRunDoublesTransfers(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedUser(t, store, "u1",
		[]core.Bin{{ID: "b1", Name: "Trip"}},
		[]core.Schedule{weeklySchedule("s1", "b1", 400)})
	svc := NewTransferService(store, nil, 0)

	for i := 0; i < 2; i++ {
		if _, err := svc.ProcessAll(ctx, wednesday); err != nil {
			t.Fatalf("ProcessAll: %v", err)
		}
	}
	bin, _ := store.GetBin(ctx, "u1", "b1")
	if bin.CurrentAmount.Cents != 200 {
		t.Errorf("balance = %d, want 200 after two runs", bin.CurrentAmount.Cents)
	}
}
