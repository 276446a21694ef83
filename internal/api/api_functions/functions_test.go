package api_functions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var got structs.MessageBody
		var encoding string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding = r.Header.Get("Content-Encoding")
			if !DecodeBody(w, r, &got) {
				return
			}
			WriteJSON(w, http.StatusOK, structs.Success{Success: true})
		}))

		body, err := PostJSON(context.Background(), server.Client(), server.URL, structs.MessageBody{Message: "aGVsbG8="}, compress)
		server.Close()
		require.NoError(t, err)

		var success structs.Success
		require.NoError(t, json.Unmarshal(body, &success))
		assert.True(t, success.Success)
		assert.Equal(t, "aGVsbG8=", got.Message)
		if compress {
			assert.Equal(t, "gzip", encoding)
		} else {
			assert.Empty(t, encoding)
		}
	}
}

func TestPostJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := PostJSON(context.Background(), server.Client(), server.URL, structs.MessageBody{}, false)
	require.Error(t, err)
	statusErr, ok := err.(*StatusError)
	require.True(t, ok, "expected *StatusError, got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "nope", statusErr.Body)
}

func TestDecodeBodyRejectsGarbage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/message", stringsReader("{not json"))
	var body structs.MessageBody
	assert.False(t, DecodeBody(rec, req, &body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/message", stringsReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	assert.False(t, DecodeBody(rec, req, &body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, structs.Result{Result: 4002})
	}))
	defer server.Close()

	var result struct {
		Result *int `json:"result"`
	}
	require.NoError(t, GetJSON(context.Background(), server.Client(), server.URL, &result))
	require.NotNil(t, result.Result)
	assert.Equal(t, 4002, *result.Result)
}

func TestWriteText(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteText(rec, "live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "live", rec.Body.String())
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
