package server

import (
	"testing"

	"snakearena/game"
)

func TestDecodeInboundAccepts(t *testing.T) {
	cases := []struct {
		raw  string
		want game.Command
	}{
		{`{"type":"dir","x":0.5,"y":-1,"boost":true}`, game.Steer{Player: 7, Dir: game.Vec2{X: 0.5, Y: -1}, Boost: true}},
		{`{"type":"dir","x":0,"y":0}`, game.Steer{Player: 7}},
		{`{"type":"dir","x":1,"y":0,"seq":42}`, game.Steer{Player: 7, Dir: game.Vec2{X: 1}, Seq: 42}},
		{`{"type":"eat","foodId":12,"seq":3}`, game.Eat{Player: 7, Food: 12}},
		{`{"type":"kill","victimId":4}`, game.Kill{Player: 7, Victim: 4}},
		{`{"type":"leave"}`, game.Leave{Player: 7}},
	}
	for _, tc := range cases {
		im, err := DecodeInbound([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		cmd, err := im.Command(7)
		if err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		if cmd != tc.want {
			t.Fatalf("%s: command %#v, want %#v", tc.raw, cmd, tc.want)
		}
	}
}

func TestDecodeInboundSpawn(t *testing.T) {
	im, err := DecodeInbound([]byte(`{"type":"spawn","skin":"neon"}`))
	if err != nil {
		t.Fatal(err)
	}
	if im.Type != "spawn" || im.Skin == nil || *im.Skin != "neon" {
		t.Fatalf("spawn decoded as %+v", im)
	}
	if _, err := im.Command(1); err == nil {
		t.Fatalf("spawn is handled by the connection, not mapped directly")
	}
	im, err = DecodeInbound([]byte(`{"type":"spawn"}`))
	if err != nil || im.Skin != nil {
		t.Fatalf("spawn without skin: %+v %v", im, err)
	}
}

func TestDecodeInboundRejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{}`,
		`{"type":"move","command":"up"}`,
		`{"type":"dir","x":1}`,
		`{"type":"dir","x":"1","y":0}`,
		`{"type":"dir","x":1,"y":0,"extra":true}`,
		`{"type":"dir","x":1,"y":0,"seq":-1}`,
		`{"type":"eat","foodId":0}`,
		`{"type":"eat","foodId":1.5}`,
		`{"type":"kill"}`,
		`{"type":"spawn","skin":""}`,
		`[1,2]`,
	} {
		if _, err := DecodeInbound([]byte(raw)); err == nil {
			t.Fatalf("%s: expected rejection", raw)
		}
	}
}
