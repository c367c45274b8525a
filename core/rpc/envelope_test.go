package rpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/rpc"
)

func TestDecodeRequest(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		req, err := rpc.DecodeRequest([]byte(`{"jsonrpc":2.0,"id":7,"method":"A.b","params":["x",1],"token":"tok"}`))
		require.NoError(t, err)
		assert.JSONEq(t, "7", string(req.ID))
		assert.Equal(t, "A.b", req.Method)
		assert.Equal(t, 2, req.Params.Len())
		require.NotNil(t, req.Token)
		assert.Equal(t, "tok", *req.Token)
		assert.True(t, req.CheckVersion())
	})

	t.Run("null params become no arguments", func(t *testing.T) {
		t.Parallel()
		req, err := rpc.DecodeRequest([]byte(`{"jsonrpc":2.0,"id":1,"method":"A.b","params":null}`))
		require.NoError(t, err)
		assert.Equal(t, 0, req.Params.Len())
		assert.Nil(t, req.Token)
	})

	t.Run("scalar params become one argument", func(t *testing.T) {
		t.Parallel()
		req, err := rpc.DecodeRequest([]byte(`{"jsonrpc":2.0,"id":1,"method":"A.b","params":"solo"}`))
		require.NoError(t, err)
		require.Equal(t, 1, req.Params.Len())
		s, err := req.Params.String(0)
		require.NoError(t, err)
		assert.Equal(t, "solo", s)
	})

	t.Run("null token is no token", func(t *testing.T) {
		t.Parallel()
		req, err := rpc.DecodeRequest([]byte(`{"jsonrpc":2.0,"id":1,"method":"A.b","params":[],"token":null}`))
		require.NoError(t, err)
		assert.Nil(t, req.Token)
	})

	cases := map[string]string{
		"empty":          ``,
		"whitespace":     "  \n",
		"not json":       `{jsonrpc`,
		"array":          `[1,2]`,
		"string":         `"hello"`,
		"null":           `null`,
		"missing params": `{"jsonrpc":2.0,"id":1,"method":"A.b"}`,
		"missing id":     `{"jsonrpc":2.0,"method":"A.b","params":[]}`,
		"missing method": `{"jsonrpc":2.0,"id":1,"params":[]}`,
		"missing ver":    `{"id":1,"method":"A.b","params":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := rpc.DecodeRequest([]byte(body))
			assert.ErrorIs(t, err, fault.ErrBadRequest)
		})
	}
}

func TestRequest_CheckVersion(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		`2.0`:   true,
		`2`:     true,
		`"2.0"`: true,
		`1.0`:   false,
		`"2.x"`: false,
		`true`:  false,
		`{}`:    false,
	} {
		req := &rpc.Request{Version: json.RawMessage(raw)}
		assert.Equal(t, want, req.CheckVersion(), raw)
	}
}

func TestResponse_MarshalJSON(t *testing.T) {
	t.Parallel()

	keys := func(t *testing.T, data []byte) map[string]json.RawMessage {
		t.Helper()
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	t.Run("result", func(t *testing.T) {
		t.Parallel()
		tok := "abc"
		data, err := json.Marshal(rpc.Response{ID: json.RawMessage("3"), Token: &tok, Result: json.RawMessage(`{"a":1}`)})
		require.NoError(t, err)

		m := keys(t, data)
		assert.Len(t, m, 4)
		assert.Equal(t, "2.0", string(m["jsonrpc"]))
		assert.Equal(t, "3", string(m["id"]))
		assert.Equal(t, `"abc"`, string(m["token"]))
		assert.JSONEq(t, `{"a":1}`, string(m["result"]))
		assert.NotContains(t, m, "error")
	})

	t.Run("null result is still present", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(rpc.Response{ID: json.RawMessage("1")})
		require.NoError(t, err)

		m := keys(t, data)
		assert.Equal(t, "null", string(m["result"]))
		assert.Equal(t, "null", string(m["token"]))
		assert.NotContains(t, m, "error")
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(rpc.Response{Error: &rpc.ErrorObject{Code: 501, Message: "Bad request."}})
		require.NoError(t, err)

		m := keys(t, data)
		assert.Len(t, m, 4)
		assert.Equal(t, "-1", string(m["id"]))
		assert.JSONEq(t, `{"code":501,"message":"Bad request."}`, string(m["error"]))
		assert.NotContains(t, m, "result")
	})
}

func TestArgs(t *testing.T) {
	t.Parallel()

	args, err := rpc.NewArgs("alice", 42, map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, 3, args.Len())

	var n int
	require.NoError(t, args.Bind(1, &n))
	assert.Equal(t, 42, n)

	var m map[string]string
	require.NoError(t, args.Bind(2, &m))
	assert.Equal(t, "v", m["k"])

	var a, b string
	assert.ErrorIs(t, args.Strings(&a, &b), fault.ErrInvalidArgument)
	assert.Equal(t, "alice", a)

	_, err = args.String(1)
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
	assert.ErrorIs(t, args.Bind(5, &n), fault.ErrInvalidArgument)
	assert.Nil(t, args.Raw(-1))
}
