package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/zflow-run/zflow/pkg/executor"
	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/kv"
	"github.com/zflow-run/zflow/pkg/registry"
	"github.com/zflow-run/zflow/pkg/schema"
	"github.com/zflow-run/zflow/pkg/value"
)

func newTestServer() (*echo.Echo, *executor.Mock) {
	mock := executor.NewMock()
	reg := registry.New(kv.NewMemoryStore())
	s := New(mock, reg)

	e := echo.New()
	s.RegisterRoutes(e.Group(""))
	return e, mock
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func startFlow(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doRequest(e, http.MethodPost, "/flows", `{"Flow":{"kind":"Succeed","value":{"Int":11}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp startResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.FlowID)
	return resp.FlowID
}

func TestStartThenPollRunningThenSucceeded(t *testing.T) {
	e, mock := newTestServer()
	id := startFlow(t, e)
	mock.PollAfter[id] = 3
	mock.Outcomes[id] = value.Succeeded(value.String("hello"))

	rec := doRequest(e, http.MethodGet, "/flows/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"Running":{}}`, rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/flows/"+id, "")
	require.JSONEq(t, `{"Running":{}}`, rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/flows/"+id, "")
	require.JSONEq(t, `{"Succeeded":{"String":"hello"}}`, rec.Body.String())
}

func TestPollFailed(t *testing.T) {
	e, mock := newTestServer()
	id := startFlow(t, e)
	mock.PollAfter[id] = 1
	mock.Outcomes[id] = value.Failed(value.String("hello"))

	rec := doRequest(e, http.MethodGet, "/flows/"+id, "")
	require.JSONEq(t, `{"Failed":{"String":"hello"}}`, rec.Body.String())
}

func TestPollDied(t *testing.T) {
	e, mock := newTestServer()
	id := startFlow(t, e)
	mock.PollAfter[id] = 1
	mock.Outcomes[id] = value.Died(value.MissingVariable("x", "y"))

	rec := doRequest(e, http.MethodGet, "/flows/"+id, "")
	require.JSONEq(t, `{"Died":{"MissingVariable":{"name":"x","context":"y"}}}`, rec.Body.String())
}

func TestStartFlowWithParameterThenPollSucceeded(t *testing.T) {
	e, mock := newTestServer()

	body := `{"FlowWithParameter":{"flow":{"kind":"Input"},"inputSchema":{"kind":"Int"},"parameter":11}}`
	rec := doRequest(e, http.MethodPost, "/flows", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp startResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	mock.PollAfter[resp.FlowID] = 1
	mock.Outcomes[resp.FlowID] = value.Succeeded(value.Int(1))

	pollRec := doRequest(e, http.MethodGet, "/flows/"+resp.FlowID, "")
	require.JSONEq(t, `{"Succeeded":{"Int":1}}`, pollRec.Body.String())
}

func TestStartTemplateWithParameter(t *testing.T) {
	mock := executor.NewMock()
	store := kv.NewMemoryStore()
	reg := registry.New(store)
	s := New(mock, reg)
	e := echo.New()
	s.RegisterRoutes(e.Group(""))

	tmpl := flowdsl.Template{Flow: flowdsl.Input(schema.Int()), InputSchema: schema.Int()}
	require.NoError(t, reg.Put(context.Background(), "double", tmpl))

	rec := doRequest(e, http.MethodPost, "/flows", `{"TemplateWithParameter":{"templateId":"double","parameter":11}}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteRunningFlowReturns400(t *testing.T) {
	e, _ := newTestServer()
	id := startFlow(t, e)

	rec := doRequest(e, http.MethodDelete, "/flows/"+id, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteUnknownFlowReturns200(t *testing.T) {
	e, _ := newTestServer()
	rec := doRequest(e, http.MethodDelete, "/flows/does-not-exist", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPauseResumeAbortReturn200(t *testing.T) {
	e, _ := newTestServer()
	id := startFlow(t, e)

	for _, path := range []string{"/pause", "/resume", "/abort"} {
		rec := doRequest(e, http.MethodPost, "/flows/"+id+path, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestGetAllListsFlows(t *testing.T) {
	e, _ := newTestServer()
	id := startFlow(t, e)

	rec := doRequest(e, http.MethodGet, "/flows", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp getAllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Flows, id)
}
