package hostfuncs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONHandler(t *testing.T) {
	type TestReq struct {
		Input string `json:"input"`
	}
	type TestResp struct {
		Output string `json:"output"`
	}

	echoFunc := func(ctx context.Context, req TestReq) TestResp {
		return TestResp{Output: "echo: " + req.Input}
	}

	handler := NewJSONHandler(echoFunc)

	t.Run("success", func(t *testing.T) {
		reqBytes, err := json.Marshal(TestReq{Input: "hello"})
		require.NoError(t, err)

		respBytes, err := handler(context.Background(), reqBytes)
		require.NoError(t, err)

		var resp TestResp
		require.NoError(t, json.Unmarshal(respBytes, &resp))
		assert.Equal(t, "echo: hello", resp.Output)
	})

	t.Run("empty payload decodes to zero request", func(t *testing.T) {
		respBytes, err := handler(context.Background(), nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"output":"echo: "}`, string(respBytes))
	})

	t.Run("invalid JSON returns ErrorResponse", func(t *testing.T) {
		respBytes, err := handler(context.Background(), []byte("{invalid-json"))
		require.NoError(t, err)
		require.NotNil(t, respBytes)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(respBytes, &errResp))
		require.NotNil(t, errResp.Err)
		assert.Equal(t, CodeValidation, errResp.Err.Code)
		assert.Contains(t, errResp.Err.Message, "unmarshal")
	})
}

func TestNewVoidHandler(t *testing.T) {
	var got string
	handler := NewVoidHandler(func(ctx context.Context, req struct {
		Path string `json:"path"`
	}) {
		got = req.Path
	})

	resp, err := handler(context.Background(), []byte(`{"path":"src/main.ui"}`))
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, "src/main.ui", got)

	_, err = handler(context.Background(), []byte("nope"))
	var errResp ErrorResponse
	require.ErrorAs(t, err, &errResp)
	assert.Equal(t, CodeValidation, errResp.Err.Code)
}
