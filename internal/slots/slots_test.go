package slots

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"slot-editor/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D { return geometry.Point2D{X: x, Y: y} }

func sq(x, y, size float64) Polygon {
	return Polygon{pt(x, y), pt(x+size, y), pt(x+size, y+size), pt(x, y+size)}
}

func TestRectangleOrder(t *testing.T) {
	want := Polygon{pt(50, 50), pt(120, 50), pt(120, 130), pt(50, 130)}

	if got := Rectangle(pt(50, 50), pt(120, 130)); !reflect.DeepEqual(got, want) {
		t.Errorf("forward drag = %v, want %v", got, want)
	}
	if got := Rectangle(pt(120, 130), pt(50, 50)); !reflect.DeepEqual(got, want) {
		t.Errorf("reverse drag = %v, want %v", got, want)
	}
}

func TestStore_AppendPopRemove(t *testing.T) {
	a, b, c := sq(0, 0, 10), sq(20, 0, 10), sq(40, 0, 10)
	s := NewStore(nil)
	s.Append(a)
	s.Append(b)
	s.Append(c)

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	got, ok := s.Pop()
	if !ok || !reflect.DeepEqual(got, c) {
		t.Fatalf("Pop = %v %v, want C", got, ok)
	}
	if !reflect.DeepEqual(s.All(), []Polygon{a, b}) {
		t.Fatalf("after pop: %v", s.All())
	}

	if err := s.RemoveAt(0); err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if !reflect.DeepEqual(s.All(), []Polygon{b}) {
		t.Fatalf("after remove: %v", s.All())
	}

	if err := s.RemoveAt(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RemoveAt(5) err = %v, want ErrIndexOutOfRange", err)
	}

	s.Pop()
	if _, ok := s.Pop(); ok {
		t.Error("Pop on empty store should report false")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after popping empty", s.Len())
	}
}

func TestStore_SnapshotsAreIndependent(t *testing.T) {
	src := []Polygon{sq(0, 0, 10)}
	s := NewStore(src)
	src[0][0] = pt(99, 99)

	all := s.All()
	if all[0][0] != pt(0, 0) {
		t.Fatal("store shares storage with its input")
	}
	all[0][1] = pt(77, 77)
	if s.At(0)[1] != pt(10, 0) {
		t.Fatal("store shares storage with its snapshot")
	}
}

func TestStore_HitTestTopmost(t *testing.T) {
	a := sq(0, 0, 100)
	b := sq(50, 50, 100)
	s := NewStore([]Polygon{a, b})

	if got := s.HitTest(pt(75, 75)); got != 1 {
		t.Errorf("overlap hit = %d, want 1", got)
	}
	if got := s.HitTest(pt(10, 10)); got != 0 {
		t.Errorf("A-only hit = %d, want 0", got)
	}
	if got := s.HitTest(pt(500, 500)); got != -1 {
		t.Errorf("miss = %d, want -1", got)
	}
}

func TestLabels(t *testing.T) {
	if Label(0) != "#1" || Label(9) != "#10" {
		t.Errorf("Label = %q, %q", Label(0), Label(9))
	}
	got := LabelAll([]Polygon{sq(0, 0, 1), sq(5, 5, 1)})
	if got[0].Label != "Slot-1" || got[1].Label != "Slot-2" {
		t.Errorf("LabelAll = %+v", got)
	}
}

func TestPayloadJSON(t *testing.T) {
	p := Payload{LotID: "7", Rects: []Polygon{{pt(10, 10), pt(90, 10), pt(90, 90)}}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"lot_id":"7","rects":[[[10,10],[90,10],[90,90]]]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var numeric Payload
	if err := json.Unmarshal([]byte(`{"lot_id":42,"rects":[]}`), &numeric); err != nil {
		t.Fatalf("Unmarshal numeric lot: %v", err)
	}
	if numeric.LotID != "42" {
		t.Errorf("LotID = %q, want 42", numeric.LotID)
	}

	if err := json.Unmarshal([]byte(`{"lot_id":[1],"rects":[]}`), &numeric); err == nil {
		t.Error("expected error for array lot_id")
	}
}

func TestParseInitial(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"list", `[[[1,1],[5,1],[5,5]],[[10,10],[20,10],[20,20],[10,20]]]`, 2},
		{"empty list", `[]`, 0},
		{"null", `null`, 0},
		{"object", `{"rects":[]}`, 0},
		{"string", `"nope"`, 0},
		{"garbage", `{{`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInitial([]byte(tt.in))
			if got == nil {
				t.Fatal("ParseInitial returned nil")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a, b := sq(0, 0, 10), sq(20, 0, 10)
	moved := sq(0, 0, 10)
	moved[2] = pt(11, 10)

	tests := []struct {
		name string
		x, y []Polygon
		want bool
	}{
		{"nil and empty", nil, []Polygon{}, true},
		{"same order", []Polygon{a, b}, []Polygon{a.Clone(), b.Clone()}, true},
		{"swapped", []Polygon{a, b}, []Polygon{b, a}, false},
		{"extra slot", []Polygon{a}, []Polygon{a, b}, false},
		{"moved vertex", []Polygon{a}, []Polygon{moved}, false},
	}
	for _, tt := range tests {
		if got := Equal(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
	}
}
