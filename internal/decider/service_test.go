package decider

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/freeeve/soccer-proxy/internal/auth"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

func TestRegisterAssignsIDs(t *testing.T) {
	svc := NewService(DefaultPolicy())
	ctx := context.Background()

	a, err := svc.Register(ctx, &wire.RegisterRequest{TeamName: "robo", Unum: 1})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	b, err := svc.Register(ctx, &wire.RegisterRequest{TeamName: "robo", Unum: 2})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ClientID == b.ClientID {
		t.Errorf("expected distinct client ids, got %d twice", a.ClientID)
	}
	if a.SessionID == "" || a.SessionID == b.SessionID {
		t.Errorf("expected distinct session ids, got %q and %q", a.SessionID, b.SessionID)
	}
	if svc.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", svc.ClientCount())
	}

	if _, err := svc.SendByeCommand(ctx, a); err != nil {
		t.Fatalf("bye: %v", err)
	}
	if svc.ClientCount() != 1 {
		t.Errorf("expected 1 client after bye, got %d", svc.ClientCount())
	}
}

func TestRegisterRejects(t *testing.T) {
	svc := NewService(DefaultPolicy())
	_, err := svc.Register(context.Background(), &wire.RegisterRequest{Unum: 1})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}

	ctx := auth.WithClaims(context.Background(), &auth.Claims{Team: "robo", Unum: 3})
	_, err = svc.Register(ctx, &wire.RegisterRequest{TeamName: "robo", Unum: 4})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("expected PermissionDenied for a foreign unum, got %v", err)
	}
	if _, err := svc.Register(ctx, &wire.RegisterRequest{TeamName: "robo", Unum: 3}); err != nil {
		t.Errorf("expected matching claims to register, got %v", err)
	}
}

func TestUnknownClient(t *testing.T) {
	svc := NewService(DefaultPolicy())
	ctx := context.Background()
	stranger := wire.RegisterResponse{ClientID: 42}

	_, err := svc.GetPlayerActions(ctx, &wire.State{Register: stranger, World: playOnWorld()})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	_, err = svc.SendInitMessage(ctx, &wire.InitMessage{Register: stranger})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	_, err = svc.GetBestPlannerAction(ctx, &wire.ArbitrationRequest{
		Register: stranger,
		Pairs:    map[int32]wire.ActionStatePair{1: pair(-1, 1)},
	})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestServiceCycle(t *testing.T) {
	svc := NewService(DefaultPolicy())
	ctx := context.Background()
	reg, _ := svc.Register(ctx, &wire.RegisterRequest{TeamName: "robo", Unum: 7})

	if _, err := svc.SendInitMessage(ctx, &wire.InitMessage{Register: *reg, DebugMode: true}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := svc.GetPlayerActions(ctx, &wire.State{Register: *reg}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument without a world, got %v", err)
	}

	w := playOnWorld()
	w.Self.Kickable = true
	acts, err := svc.GetPlayerActions(ctx, &wire.State{Register: *reg, World: w})
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if acts.Actions[1].OffensivePlanner == nil {
		t.Errorf("expected planner, got %+v", acts.Actions)
	}

	c, ok := svc.Client(reg.ClientID)
	if !ok || c.Cycles != 1 || c.Init == nil || !c.Init.DebugMode {
		t.Errorf("expected one cycle and a stored init message, got %+v", c)
	}

	if _, err := svc.GetBestPlannerAction(ctx, &wire.ArbitrationRequest{Register: *reg}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for no pairs, got %v", err)
	}
	resp, err := svc.GetBestPlannerAction(ctx, &wire.ArbitrationRequest{
		Register: *reg,
		Pairs:    map[int32]wire.ActionStatePair{5: pair(-1, 1), 6: pair(5, 9)},
	})
	if err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if resp.Index != 5 {
		t.Errorf("expected index 5, got %d", resp.Index)
	}
}
