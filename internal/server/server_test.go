package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hailam/endgame/internal/syzygy"
	"github.com/hailam/endgame/internal/tablebase"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()

	tables := syzygy.NewTablebase(0)
	t.Cleanup(tables.Close)

	srv := New(tables, tablebase.NewSyzygyDownloader(dir))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestStandardMissingFEN(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/standard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestStandardInvalidFEN(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/standard?fen=notafen")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestStandardNoTables(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/standard?fen=8/8/4K3/8/8/3k4/8/4Q3_w_-_-_0_1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in response")
	}
}

func TestTablesEndpoint(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/tables")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body tablesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.MaxPieces != 0 {
		t.Errorf("MaxPieces = %d, want 0 with no files", body.MaxPieces)
	}
}

func TestStandardWithTables(t *testing.T) {
	dir := os.Getenv("ENDGAME_SYZYGY_PATH")
	if dir == "" {
		dir = filepath.Join("..", "syzygy", "testdata", "syzygy")
	}
	if _, err := os.Stat(filepath.Join(dir, "KQvK.rtbw")); err != nil {
		t.Skip("no tablebase files available")
	}

	tables := syzygy.NewTablebase(0)
	defer tables.Close()
	if _, err := tables.AddDirectory(dir); err != nil {
		t.Fatal(err)
	}

	srv := New(tables, tablebase.NewSyzygyDownloader(dir))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/standard?fen=8/8/8/8/8/2k5/1Q6/3K4_w_-_-_0_1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body probeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Category != "win" {
		t.Errorf("category = %q, want win", body.Category)
	}
	if len(body.Moves) == 0 {
		t.Error("expected ranked moves in response")
	}
}

func TestWDLCategory(t *testing.T) {
	tests := []struct {
		wdl  int
		want string
	}{
		{2, "win"},
		{1, "cursed-win"},
		{0, "draw"},
		{-1, "blessed-loss"},
		{-2, "loss"},
	}
	for _, tc := range tests {
		if got := wdlCategory(tc.wdl); got != tc.want {
			t.Errorf("wdlCategory(%d) = %q, want %q", tc.wdl, got, tc.want)
		}
	}
}
