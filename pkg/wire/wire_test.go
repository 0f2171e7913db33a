package wire

import (
	"encoding/json"
	"strings"
	"testing"

	"google.golang.org/grpc/encoding"

	"github.com/freeeve/soccer-proxy/pkg/field"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatal("expected the json codec to be registered")
	}
	in := &ArbitrationRequest{
		Register: RegisterResponse{ClientID: 3, TeamName: "robo", Unum: 7},
		Pairs: map[int32]ActionStatePair{
			5: {Evaluation: 12.5},
		},
	}
	raw, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"client_id":3`) {
		t.Errorf("expected snake_case field names, got %s", raw)
	}
	var out ArbitrationRequest
	if err := c.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Pairs[5].Evaluation != 12.5 {
		t.Errorf("expected evaluation 12.5, got %v", out.Pairs[5].Evaluation)
	}
}

func TestPlayerActionOmitsUnset(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	raw, err := c.Marshal(PlayerAction{GoToPoint: &GoToPoint{Target: field.Vec(1, 2), DistanceThreshold: 1}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := keys["body_go_to_point"]; !ok || len(keys) != 1 {
		t.Errorf("expected only body_go_to_point, got %s", raw)
	}
}

func TestServiceDescMethods(t *testing.T) {
	if gameServiceDesc.ServiceName != "protos.Game" {
		t.Errorf("expected protos.Game, got %s", gameServiceDesc.ServiceName)
	}
	want := map[string]bool{
		MethodRegister:             true,
		MethodSendInitMessage:      true,
		MethodGetPlayerActions:     true,
		MethodGetBestPlannerAction: true,
		MethodSendByeCommand:       true,
	}
	for _, m := range gameServiceDesc.Methods {
		if !want[m.MethodName] {
			t.Errorf("unexpected method %s", m.MethodName)
		}
		delete(want, m.MethodName)
	}
	if len(want) != 0 {
		t.Errorf("missing methods %v", want)
	}
	if got := FullMethod(MethodGetBestPlannerAction); got != "/protos.Game/GetBestPlannerAction" {
		t.Errorf("unexpected full method %s", got)
	}
}
