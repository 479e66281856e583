package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datahub-cli/internal/logging"
	"github.com/KaramelBytes/datahub-cli/internal/predict"
	"github.com/KaramelBytes/datahub-cli/internal/session"
)

const salesCSV = "region,year,units,price,rep\n" +
	"north,2023,10,2.5,ann\n" +
	"south,2023,4,3.0,bob\n" +
	"north,2024,6,1.0,ann\n" +
	"east,2024,8,1.5,cid\n" +
	"south,2023,2,4.0,bob\n" +
	"north,2023,5,2.0,dee\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(session.NewStore(time.Hour), Options{Predict: predict.DefaultOptions()}, logging.Discard())
}

func uploadRequest(t *testing.T, method, url, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, url string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, s *Server, req *http.Request, wantStatus int, out any) []byte {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, string(body))
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out))
	}
	return body
}

func createSession(t *testing.T, s *Server, filename, content string) sessionInfo {
	t.Helper()
	var info sessionInfo
	do(t, s, uploadRequest(t, http.MethodPost, "/api/sessions", filename, content), http.StatusCreated, &info)
	return info
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	var out map[string]any
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/healthz", nil), http.StatusOK, &out)
	require.Equal(t, "ok", out["status"])
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	info := createSession(t, s, "sales.csv", salesCSV)
	require.NotEmpty(t, info.ID)
	require.Equal(t, 6, info.Rows)
	require.Equal(t, 5, info.Cols)
	require.Equal(t, "There are 6 rows and 5 columns in the dataset", info.Summary)
	require.Equal(t, "int64", string(info.Columns[1].DType))

	var got sessionInfo
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+info.ID, nil), http.StatusOK, &got)
	require.Equal(t, "sales.csv", got.FileName)

	do(t, s, uploadRequest(t, http.MethodPut, "/api/sessions/"+info.ID+"/dataset", "ab.csv", "A,B\n1,x\n"), http.StatusOK, &got)
	require.Equal(t, 1, got.Rows)
	require.Equal(t, info.ID, got.ID)

	do(t, s, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+info.ID, nil), http.StatusNoContent, nil)
	body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+info.ID, nil), http.StatusNotFound, nil)
	require.Contains(t, string(body), "session not found")
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t)
	do(t, s, uploadRequest(t, http.MethodPost, "/api/sessions", "book.xlsx", "not a zip"), http.StatusUnprocessableEntity, nil)
	do(t, s, uploadRequest(t, http.MethodPost, "/api/sessions", "empty.csv", ""), http.StatusUnprocessableEntity, nil)
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions", map[string]string{}), http.StatusBadRequest, nil)
}

func TestDescribeHeadTail(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "sales.csv", salesCSV).ID

	var desc struct {
		Summary  string    `json:"summary"`
		Describe tableJSON `json:"describe"`
	}
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/describe", nil), http.StatusOK, &desc)
	require.Equal(t, "stat", desc.Describe.Columns[0].Name)
	require.Len(t, desc.Describe.Rows, 8)
	require.Equal(t, float64(6), desc.Describe.Rows[0][1])

	var head tableJSON
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/head?n=2", nil), http.StatusOK, &head)
	require.Len(t, head.Rows, 2)
	require.Equal(t, "north", head.Rows[0][0])

	var tail tableJSON
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/tail?n=50", nil), http.StatusOK, &tail)
	require.Len(t, tail.Rows, 6)
}

func TestValueCounts(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "sales.csv", salesCSV).ID
	var out struct {
		Table   tableJSON        `json:"table"`
		Figures []map[string]any `json:"figures"`
	}
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/value-counts?column=region&top=2", nil), http.StatusOK, &out)
	require.Equal(t, []any{"north", float64(3)}, out.Table.Rows[0])
	require.Len(t, out.Table.Rows, 2)
	require.Len(t, out.Figures, 3)

	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/value-counts?column=nope", nil), http.StatusNotFound, nil)
	do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/value-counts", nil), http.StatusBadRequest, nil)
}

func TestAggregate(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "ab.csv", "A,B\n1,x\n2,x\n3,y\n").ID
	var out struct {
		Table  tableJSON      `json:"table"`
		Figure map[string]any `json:"figure"`
	}
	body := map[string]any{
		"group_by": []string{"B"}, "column": "A", "operation": "sum",
		"chart": map[string]any{"kind": "bar", "x": "B", "y": "newcol"},
	}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/aggregate", body), http.StatusOK, &out)
	require.Equal(t, [][]any{{"x", float64(3)}, {"y", float64(3)}}, out.Table.Rows)
	require.Equal(t, "bar", out.Figure["kind"])

	bad := map[string]any{"group_by": []string{"A"}, "column": "B", "operation": "mean"}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/aggregate", bad), http.StatusUnprocessableEntity, nil)
	noGroup := map[string]any{"column": "A", "operation": "sum"}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/aggregate", noGroup), http.StatusBadRequest, nil)
	badOp := map[string]any{"group_by": []string{"B"}, "column": "A", "operation": "mode"}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/aggregate", badOp), http.StatusBadRequest, nil)
	noY := map[string]any{"group_by": []string{"B"}, "column": "A", "operation": "sum", "chart": map[string]any{"kind": "line", "x": "B"}}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/aggregate", noY), http.StatusBadRequest, nil)
}

func TestAggregateScatterWithEmptyGroup(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "g.csv", "g,k,v\na,1,1\na,1,2\nb,2,\n").ID
	var out struct {
		Figure struct {
			Traces []struct {
				Y     []float64 `json:"y"`
				Sizes []float64 `json:"sizes"`
			} `json:"traces"`
		} `json:"figure"`
	}
	body := map[string]any{
		"group_by": []string{"g", "k"}, "column": "v", "operation": "mean",
		"chart": map[string]any{"kind": "scatter", "x": "g", "y": "k", "size": "newcol"},
	}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/aggregate", body), http.StatusOK, &out)
	require.Len(t, out.Figure.Traces, 1)
	require.Equal(t, []float64{1}, out.Figure.Traces[0].Y)
	require.Equal(t, []float64{1.5}, out.Figure.Traces[0].Sizes)
}

func TestChartImage(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s, "sales.csv", salesCSV).ID
	body := map[string]any{
		"group_by": []string{"region", "year"}, "column": "units", "operation": "sum",
		"chart": map[string]any{"kind": "sunburst", "path": []string{"region", "year"}},
	}
	req := jsonRequest(http.MethodPost, "/api/sessions/"+id+"/chart?format=png&width=400&height=300", body)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, _ := io.ReadAll(resp.Body)
	require.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	delete(body, "chart")
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/chart", body), http.StatusBadRequest, nil)
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/chart?format=gif", body), http.StatusBadRequest, nil)
}

func TestPredict(t *testing.T) {
	s := newTestServer(t)
	var csv strings.Builder
	csv.WriteString("x,y,label\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&csv, "%d,%d,l%d\n", i, 2*i+1, i)
	}
	id := createSession(t, s, "lin.csv", csv.String()).ID
	var out struct {
		MSE       float64   `json:"mse"`
		MSEText   string    `json:"mse_text"`
		TrainSize int       `json:"train_size"`
		TestSize  int       `json:"test_size"`
		Table     tableJSON `json:"table"`
	}
	spec := map[string]any{"features": []string{"x"}, "target": "y", "model": "linear"}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/predict", spec), http.StatusOK, &out)
	require.Equal(t, 14, out.TrainSize)
	require.Equal(t, 6, out.TestSize)
	require.InDelta(t, 0, out.MSE, 1e-9)
	require.True(t, strings.HasPrefix(out.MSEText, "Mean Squared Error: "))
	require.Len(t, out.Table.Rows, 6)

	text := map[string]any{"features": []string{"label"}, "target": "y", "model": "tree"}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/predict", text), http.StatusUnprocessableEntity, nil)
	none := map[string]any{"target": "y", "model": "tree"}
	do(t, s, jsonRequest(http.MethodPost, "/api/sessions/"+id+"/predict", none), http.StatusBadRequest, nil)
}
