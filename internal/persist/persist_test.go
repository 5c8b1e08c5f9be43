package persist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"slot-editor/internal/slots"
	"slot-editor/pkg/geometry"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSaveSlots_Success(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := NewClient(Endpoints{Save: srv.URL, Dashboard: "/lots/7"}, time.Second, discardLogger())
	polys := []slots.Polygon{{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 90}, {X: 10, Y: 90}}}
	res := c.SaveSlots(context.Background(), "7", polys)

	if !res.OK || res.Status != http.StatusOK || res.Err != nil {
		t.Fatalf("Result = %+v", res)
	}
	if res.Redirect != "/lots/7" {
		t.Errorf("Redirect = %q", res.Redirect)
	}
	if string(got["lot_id"]) != `"7"` {
		t.Errorf("lot_id = %s", got["lot_id"])
	}
	if string(got["rects"]) != `[[[10,10],[90,10],[90,90],[10,90]]]` {
		t.Errorf("rects = %s", got["rects"])
	}
}

func TestSaveSlots_EmptyListSendsArray(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
	}))
	defer srv.Close()

	res := NewClient(Endpoints{Save: srv.URL}, time.Second, nil).SaveSlots(context.Background(), "1", nil)
	if !res.OK {
		t.Fatalf("Result = %+v", res)
	}
	if raw != `{"lot_id":"1","rects":[]}` {
		t.Errorf("body = %s", raw)
	}
}

func TestSaveSlots_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"error","error":"polygon 2 has fewer than 3 points"}`))
	}))
	defer srv.Close()

	res := NewClient(Endpoints{Save: srv.URL, Dashboard: "/dash"}, time.Second, discardLogger()).SaveSlots(context.Background(), "3", nil)
	if res.OK {
		t.Fatal("400 reported as success")
	}
	if res.Status != http.StatusBadRequest || res.Reason != "polygon 2 has fewer than 3 points" {
		t.Errorf("Result = %+v", res)
	}
	if res.Redirect != "" {
		t.Errorf("failure carries redirect %q", res.Redirect)
	}

	res = NewClient(Endpoints{Save: srv.URL}, time.Second, nil).SaveSlots(context.Background(), "  ", nil)
	if res.OK || !errors.Is(res.Err, ErrEmptyLotID) {
		t.Errorf("empty lot: %+v", res)
	}
}

func TestSaveSlots_PlainTextReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := NewClient(Endpoints{Save: srv.URL}, time.Second, nil).SaveSlots(context.Background(), "3", nil)
	if res.OK || res.Status != http.StatusServiceUnavailable || res.Reason != "backend down" {
		t.Errorf("Result = %+v", res)
	}
}

func TestSaveSlots_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewClient(Endpoints{Save: url}, time.Second, nil).SaveSlots(context.Background(), "3", []slots.Polygon{{geometry.Point2D{}}})
	if res.OK || res.Err == nil || res.Status != 0 {
		t.Errorf("Result = %+v", res)
	}
}

func TestSaveSlots_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewClient(Endpoints{Save: srv.URL}, 0, nil).SaveSlots(ctx, "3", nil)
	if res.OK || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Result = %+v", res)
	}
}

func TestLoadSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/slots/7":
			w.Write([]byte(`{"lot_id":"7","slots":[{"label":"Slot-1","points":[[1,2],[3,4],[5,6]]}]}`))
		case "/api/slots/8":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Endpoints{Slots: srv.URL + "/api/slots/"}, time.Second, nil)

	got, err := c.LoadSlots(context.Background(), "7")
	if err != nil {
		t.Fatalf("LoadSlots: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 3 || got[0][2] != (geometry.Point2D{X: 5, Y: 6}) {
		t.Errorf("LoadSlots = %v", got)
	}

	got, err = c.LoadSlots(context.Background(), "99")
	if err != nil || len(got) != 0 {
		t.Errorf("unknown lot: %v, %v", got, err)
	}

	if _, err := c.LoadSlots(context.Background(), "8"); err == nil {
		t.Error("expected error for 500")
	}

	if _, err := NewClient(Endpoints{}, 0, nil).LoadSlots(context.Background(), "7"); err == nil {
		t.Error("expected error without slots endpoint")
	}
}
