package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ironsheep/image-pyramid-service/internal/compress"
	"github.com/ironsheep/image-pyramid-service/internal/pyramid"
	"github.com/ironsheep/image-pyramid-service/internal/raster"
	"github.com/ironsheep/image-pyramid-service/internal/service"
	"github.com/ironsheep/image-pyramid-service/internal/storage"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	builder, err := pyramid.NewBuilder(pyramid.Config{
		TileSize:     32,
		MinLevelSize: 8,
		Kernel:       pyramid.Gaussian5x5(),
		Border:       pyramid.BorderReplicate,
	})
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewMemoryStore()
	srv := New(service.NewImages(store, builder, compress.Snappy), service.NewMatrices(store))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	r, err := raster.New(w, h, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range r.Pix {
		r.Pix[i] = uint8(i * 3)
	}
	data, err := raster.Encode(r, raster.FormatPNG)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func doRequest(t *testing.T, method, url, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func createImage(t *testing.T, ts *httptest.Server, png []byte) string {
	t.Helper()
	resp, body := doRequest(t, http.MethodPost, ts.URL+"/images", "image/png", png)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: got status %d, body %s", resp.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out["id"] == "" {
		t.Fatal("upload returned no id")
	}
	return out["id"]
}

func TestImageEndpoints(t *testing.T) {
	ts := testServer(t)
	png := testPNG(t, 70, 50)
	id := createImage(t, ts, png)

	t.Run("read original", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, ts.URL+"/images/"+id, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if resp.Header.Get("Content-Type") != "image/png" {
			t.Errorf("content type: %s", resp.Header.Get("Content-Type"))
		}
		if !bytes.Equal(body, png) {
			t.Error("returned bytes differ from upload")
		}
	})

	t.Run("read transcoded", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, ts.URL+"/images/"+id+"?format=bmp", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if _, _, err := raster.Decode(body, raster.FormatBMP); err != nil {
			t.Errorf("response is not valid BMP: %v", err)
		}
	})

	t.Run("read tile", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet,
			ts.URL+"/images/"+id+"/pyramid/0/tiles/1/2", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d, body %s", resp.StatusCode, body)
		}
		tile, _, err := raster.Decode(body, raster.FormatPNG)
		if err != nil {
			t.Fatal(err)
		}
		// Column 2 of a 70-wide image at tile size 32 is the 6px remainder.
		if tile.Width != 6 || tile.Height != 18 {
			t.Errorf("edge tile: got %dx%d, want 6x18", tile.Width, tile.Height)
		}
	})

	t.Run("tile out of grid", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodGet,
			ts.URL+"/images/"+id+"/pyramid/0/tiles/9/9", "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status %d, want 404", resp.StatusCode)
		}
	})

	t.Run("tile bad coordinate", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodGet,
			ts.URL+"/images/"+id+"/pyramid/zero/tiles/0/0", "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status %d, want 400", resp.StatusCode)
		}
	})

	t.Run("update then old tile gone", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPut, ts.URL+"/images/"+id, "image/png", testPNG(t, 20, 20))
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("update: status %d, body %s", resp.StatusCode, body)
		}
		// 20x20 at tile size 32 is a single tile; (1,2) is gone now.
		resp, _ = doRequest(t, http.MethodGet,
			ts.URL+"/images/"+id+"/pyramid/0/tiles/1/2", "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("stale tile: status %d, want 404", resp.StatusCode)
		}
	})

	t.Run("delete", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodDelete, ts.URL+"/images/"+id, "", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete: status %d", resp.StatusCode)
		}
		resp, _ = doRequest(t, http.MethodGet, ts.URL+"/images/"+id, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("read after delete: status %d, want 404", resp.StatusCode)
		}
	})
}

func TestImageUpload_Errors(t *testing.T) {
	ts := testServer(t)

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/images", "image/webp", []byte("data"))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("unsupported hint: status %d, want 415", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/images", "image/png", []byte("junk"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("corrupt upload: status %d, want 400", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/images/does-not-exist", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: status %d, want 404", resp.StatusCode)
	}
}

func createMatrix(t *testing.T, ts *httptest.Server, name string, grid [][]float64) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name, "grid": grid})
	resp, respBody := doRequest(t, http.MethodPost, ts.URL+"/matrices", "application/json", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create matrix: status %d, body %s", resp.StatusCode, respBody)
	}
	var out map[string]string
	if err := json.Unmarshal(respBody, &out); err != nil {
		t.Fatal(err)
	}
	return out["id"]
}

func TestMatrixEndpoints(t *testing.T) {
	ts := testServer(t)

	aID := createMatrix(t, ts, "A", [][]float64{{1, 0}, {0, 1}})
	bID := createMatrix(t, ts, "B", [][]float64{{3, 4}, {5, 6}})

	var result struct {
		Grid [][]float64 `json:"grid"`
	}

	t.Run("multiply by identity", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet,
			ts.URL+"/matrices/"+bID+"/multiply/"+aID, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d, body %s", resp.StatusCode, body)
		}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		want := [][]float64{{3, 4}, {5, 6}}
		for i := range want {
			for j := range want[i] {
				if result.Grid[i][j] != want[i][j] {
					t.Fatalf("got %v, want %v", result.Grid, want)
				}
			}
		}
	})

	t.Run("add", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet,
			ts.URL+"/matrices/"+aID+"/add/"+bID, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		want := [][]float64{{4, 4}, {5, 7}}
		for i := range want {
			for j := range want[i] {
				if result.Grid[i][j] != want[i][j] {
					t.Fatalf("got %v, want %v", result.Grid, want)
				}
			}
		}
	})

	t.Run("dimension mismatch is 400", func(t *testing.T) {
		wideID := createMatrix(t, ts, "wide", [][]float64{{1, 2, 3}, {4, 5, 6}})
		resp, _ := doRequest(t, http.MethodGet,
			ts.URL+"/matrices/"+wideID+"/add/"+aID, "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status %d, want 400", resp.StatusCode)
		}
	})

	t.Run("update and read", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"grid": [][]float64{{7}}})
		resp, _ := doRequest(t, http.MethodPut, ts.URL+"/matrices/"+aID, "application/json", body)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("update: status %d", resp.StatusCode)
		}

		resp, respBody := doRequest(t, http.MethodGet, ts.URL+"/matrices/"+aID, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("read: status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(respBody, &result); err != nil {
			t.Fatal(err)
		}
		if len(result.Grid) != 1 || result.Grid[0][0] != 7 {
			t.Errorf("after update: got %v", result.Grid)
		}
	})

	t.Run("delete", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodDelete, ts.URL+"/matrices/"+bID, "", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete: status %d", resp.StatusCode)
		}
		resp, _ = doRequest(t, http.MethodGet, ts.URL+"/matrices/"+bID, "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("read after delete: status %d, want 404", resp.StatusCode)
		}
	})
}
