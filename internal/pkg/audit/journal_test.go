package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "journal.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	return j
}

func TestJournalRecordsManagerEvents(t *testing.T) {
	j := openTestJournal(t)
	ctx := logging.WithSource(context.Background(), "http")

	mgr := manager.New()
	mgr.AddObserver(j)

	if _, err := mgr.Create(ctx, "r1", relay.KindTest, manager.Config{}); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Create(ctx, "r2", relay.KindTest, manager.Config{Fault: true}); err != nil {
		t.Fatal(err)
	}

	set, err := command.Parse("SET", []string{"on"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Command(ctx, "r1", set); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Command(ctx, "r2", command.New(command.TurnOn)); err == nil {
		t.Fatal("expected a hardware fault")
	}
	if err := mgr.Delete(ctx, "r1"); err != nil {
		t.Fatal(err)
	}

	all, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d entries, want 5", len(all))
	}

	// newest first
	if all[0].Action != "delete" || all[0].RelayID != "r1" {
		t.Errorf("newest entry = %+v", all[0])
	}

	r1, err := j.List(ctx, Filter{RelayID: "r1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r1) != 3 {
		t.Fatalf("got %d r1 entries, want 3", len(r1))
	}
	cmd := r1[1]
	if cmd.Action != "command" || cmd.Command != "SET" || len(cmd.Args) != 1 || cmd.Args[0] != "on" {
		t.Errorf("command entry = %+v", cmd)
	}
	if cmd.Previous != "OFF" || cmd.Current != "ON" || cmd.Source != "http" || cmd.Error != "" {
		t.Errorf("command entry = %+v", cmd)
	}
	if cmd.CreatedAt.IsZero() {
		t.Error("command entry has no time")
	}

	r2, err := j.List(ctx, Filter{RelayID: "r2", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(r2) != 1 || r2[0].Error == "" || r2[0].Current != "OFF" {
		t.Errorf("failed command entry = %+v", r2)
	}
}

func TestJournalSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	e := Entry{RelayID: "r1", Kind: "gpio", Action: "create", Previous: "OFF", Current: "OFF"}
	if err := j.Record(ctx, &e); err != nil {
		t.Fatal(err)
	}
	if e.ID == 0 {
		t.Error("Record() did not set the id")
	}
	j.Close()

	j, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	entries, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RelayID != "r1" || entries[0].Kind != "gpio" {
		t.Errorf("entries after reopen = %+v", entries)
	}
}
