package main

import (
	"testing"

	"github.com/freeeve/soccer-proxy/internal/config"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

func TestPorts(t *testing.T) {
	cfg := config.Default()
	if got := ports(cfg, field.Left); len(got) != 1 || got[0] != 50051 {
		t.Errorf("expected only the base port, got %v", got)
	}

	cfg.UseSamePort = false
	got := ports(cfg, field.Left)
	if len(got) != 11 || got[0] != 50052 || got[10] != 50062 {
		t.Errorf("expected 50052..50062, got %v", got)
	}

	cfg.AddPortForRightSide = true
	got = ports(cfg, field.Right)
	if got[0] != 50072 {
		t.Errorf("expected right side to start at 50072, got %v", got)
	}
}
