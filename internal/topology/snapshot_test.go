package topology

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_Consistency(t *testing.T) {
	g := testGraph(t)

	if err := g.AddRoom("f1", Room{ID: "r1", FloorID: "f1", Name: "Pantry", TagID: "room:t1"}); err != nil {
		t.Fatalf("AddRoom() error = %v", err)
	}
	if err := g.AddMapEntry("f1", MapEntry{Width: 2, Height: 2, TagID: "room:t1"}); err != nil {
		t.Fatalf("AddMapEntry() error = %v", err)
	}
	g.SetAutomation(Automation{Script: "on()", XML: "<xml/>"})

	snap := g.Snapshot()

	if len(snap.Devices) != 1 || len(snap.Tags) != 1 || len(snap.Floors) != 1 {
		t.Fatalf("snapshot = %d devices, %d tags, %d floors; want 1 of each",
			len(snap.Devices), len(snap.Tags), len(snap.Floors))
	}
	if snap.Automation.Script != "on()" {
		t.Errorf("Automation.Script = %q, want %q", snap.Automation.Script, "on()")
	}
}

func TestSnapshot_MapEntryWireFormat(t *testing.T) {
	e := MapEntry{Width: 2, Height: 2, X: 1, Y: 3, TagID: "room:t1"}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"w":2,"h":2,"x":1,"y":3,"i":"room:t1"}`
	if string(data) != want {
		t.Errorf("MapEntry JSON = %s, want %s", data, want)
	}
}
