package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"slot-editor/internal/slots"
	"slot-editor/pkg/geometry"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestRouter(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	store, err := NewStore("", discardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	h := NewHandler(store, NewMetrics(store), discardLogger())
	return NewRouter(h), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSaveAndReadBack(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/save_slots",
		`{"lot_id":7,"rects":[[[10,10],[90,10],[90,90],[10,90]],[[0,0],[5,0],[5,5]]]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d body=%s", rec.Code, rec.Body)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"success"}` {
		t.Errorf("save body = %s", rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/slots/7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got struct {
		LotID string          `json:"lot_id"`
		Slots []slots.Labeled `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.LotID != "7" || len(got.Slots) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Slots[0].Label != "Slot-1" || got.Slots[1].Label != "Slot-2" {
		t.Errorf("labels = %q, %q", got.Slots[0].Label, got.Slots[1].Label)
	}
	if got.Slots[0].Points[2] != (geometry.Point2D{X: 90, Y: 90}) {
		t.Errorf("points = %v", got.Slots[0].Points)
	}
}

func TestSaveReplacesLot(t *testing.T) {
	h, store := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/save_slots", `{"lot_id":"a","rects":[[[0,0],[5,0],[5,5]],[[0,0],[6,0],[6,6]]]}`)
	do(t, h, http.MethodPost, "/api/save_slots", `{"lot_id":"a","rects":[]}`)

	labeled, err := store.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(labeled) != 0 {
		t.Errorf("lot still has %d slots", len(labeled))
	}
}

func TestSaveRejects(t *testing.T) {
	h, store := newTestRouter(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "invalid JSON body"},
		{"missing lot", `{"rects":[]}`, "lot_id is required"},
		{"missing rects", `{"lot_id":"1"}`, "rects is required"},
		{"short polygon", `{"lot_id":"1","rects":[[[0,0],[1,1]]]}`, "polygon 1 has fewer than 3 points"},
		{"bad point", `{"lot_id":"1","rects":[[[0,0,0],[1,1],[2,2]]]}`, "invalid JSON body"},
		{"path lot", `{"lot_id":"../etc","rects":[]}`, "invalid lot id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/save_slots", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != "error" || !strings.Contains(body["error"], tt.want) {
				t.Errorf("body = %v, want error containing %q", body, tt.want)
			}
		})
	}

	if store.LotCount() != 0 {
		t.Errorf("rejected saves stored %d lots", store.LotCount())
	}
}

func TestUnknownLot(t *testing.T) {
	h, _ := newTestRouter(t)
	if rec := do(t, h, http.MethodGet, "/api/slots/404", ""); rec.Code != http.StatusNotFound {
		t.Errorf("api status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/lots/404", ""); rec.Code != http.StatusNotFound {
		t.Errorf("page status = %d", rec.Code)
	}
}

func TestLotPages(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/save_slots", `{"lot_id":"north_1","rects":[[[0,0],[10,0],[10,10],[0,10]]]}`)

	rec := do(t, h, http.MethodGet, "/lots", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `href="/lots/north_1"`) {
		t.Errorf("lots page: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = do(t, h, http.MethodGet, "/lots/north_1", "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Slot-1") || !strings.Contains(body, "<td>100</td>") {
		t.Errorf("lot page: %d %s", rec.Code, body)
	}
}

func TestPagesRender(t *testing.T) {
	var buf bytes.Buffer
	if err := lotsPage(nil).Render(context.Background(), &buf); err != nil {
		t.Fatalf("lotsPage: %v", err)
	}
	if !strings.Contains(buf.String(), "No lots saved yet.") || !strings.HasSuffix(buf.String(), "</body></html>") {
		t.Errorf("empty lots page = %s", buf.String())
	}

	buf.Reset()
	labeled := []slots.Labeled{
		{Label: "<b>Slot-1</b>", Points: slots.Polygon{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 5}}},
	}
	if err := lotPage("7", labeled).Render(context.Background(), &buf); err != nil {
		t.Fatalf("lotPage: %v", err)
	}
	body := buf.String()
	for _, want := range []string{"<title>Lot 7</title>", "1 slot", "&lt;b&gt;Slot-1&lt;/b&gt;", "<td>3</td>", "<td>50</td>"} {
		if !strings.Contains(body, want) {
			t.Errorf("lot page missing %q: %s", want, body)
		}
	}
}

func TestMetrics(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/save_slots", `{"lot_id":"1","rects":[[[0,0],[10,0],[10,10]]]}`)
	do(t, h, http.MethodPost, "/api/save_slots", `{`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{
		"slot_saves_total 1",
		`slot_save_failures_total{reason="bad_request"} 1`,
		"slots_stored 1",
		"lots_stored 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStore_PersistsToDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, discardLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	poly := slots.Polygon{{X: 1, Y: 1}, {X: 9, Y: 1}, {X: 9, Y: 9}}
	if err := s.Replace("12", []slots.Polygon{poly}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	reopened, err := NewStore(dir, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get("12")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 || got[0].Label != "Slot-1" || len(got[0].Points) != 3 {
		t.Errorf("reloaded = %+v", got)
	}
	if ids := reopened.Lots(); len(ids) != 1 || ids[0] != "12" {
		t.Errorf("Lots = %v", ids)
	}
}

func TestStore_Errors(t *testing.T) {
	s, _ := NewStore("", nil)
	if _, err := s.Get("x"); !errors.Is(err, ErrLotNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if err := s.Replace("a/b", nil); !errors.Is(err, ErrInvalidLotID) {
		t.Errorf("Replace err = %v", err)
	}
}

func TestStore_ConcurrentReplace(t *testing.T) {
	s, _ := NewStore("", nil)
	poly := slots.Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%4))
			_ = s.Replace(id, []slots.Polygon{poly, poly})
			_, _ = s.Get(id)
			_ = s.SlotCount()
		}(i)
	}
	wg.Wait()

	if s.LotCount() != 4 || s.SlotCount() != 8 {
		t.Errorf("lots=%d slots=%d", s.LotCount(), s.SlotCount())
	}
}

func TestListenAddr(t *testing.T) {
	t.Setenv("PORT", "")
	if got := ListenAddr(":9000"); got != ":9000" {
		t.Errorf("ListenAddr = %q", got)
	}
	t.Setenv("PORT", "7070")
	if got := ListenAddr(":9000"); got != ":7070" {
		t.Errorf("ListenAddr = %q", got)
	}
}
