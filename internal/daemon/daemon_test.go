package daemon_test

import (
	"context"
	"strings"
	"testing"

	"lawfeed/internal/daemon"
	"lawfeed/internal/feed"
	"lawfeed/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, st, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || status.RunID == "" {
		t.Fatalf("expected daemon to report running: %+v", status)
	}
	if len(status.Workflow.Lanes) != 2 {
		t.Fatalf("expected collation and dispatch lanes, got %+v", status.Workflow.Lanes)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, err := daemon.New(cfg, st, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = other.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected single-instance error, got %v", err)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := other.Start(ctx); err != nil {
		t.Fatalf("lock should be free after Stop: %v", err)
	}
	other.Stop()
}

func TestRegistryHonoursDisabledTypes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Dispatch.DisabledTypes = []string{"committee"}
	st := testsupport.MustOpenStore(t, cfg)

	registry := daemon.Registry(cfg, st, nil)
	if _, ok := registry.Resolve(feed.TypeCommittee); ok {
		t.Fatal("committee handler should be disabled")
	}
	if _, ok := registry.Resolve(feed.TypeBill); !ok {
		t.Fatal("bill handler should remain")
	}
}
