package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	consumptiondomain "github.com/smallbiznis/telecomservice/internal/consumption/domain"
)

const (
	jsonRPCVersion = "2.0"

	contextRPCID     = "rpc_id"
	contextRPCMethod = "rpc_method"
	contextRPCParams = "rpc_params"

	maxBodyBytes = 1 << 20
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// RPC decodes the JSON-RPC envelope and stores id, method and params on the
// gin context for the rest of the chain.
func RPC(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextRPCMethod, method)

		req, err := decodeRPCRequest(c.Request)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(contextRPCID, req.ID)

		params, err := decodeParams(req.Params)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if c.Request.Method == http.MethodGet {
			mergeQuery(params, c.Request.URL.Query())
		}
		c.Set(contextRPCParams, params)
		c.Next()
	}
}

func decodeRPCRequest(r *http.Request) (rpcRequest, error) {
	var req rpcRequest
	if r.Body == nil {
		return req, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, ErrInvalidRequest
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return rpcRequest{}, ErrInvalidRequest
	}
	if v := strings.TrimSpace(req.JSONRPC); v != "" && v != jsonRPCVersion {
		return req, ErrInvalidRequest
	}
	return req, nil
}

func decodeParams(raw json.RawMessage) (consumptiondomain.Params, error) {
	params := consumptiondomain.Params{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return params, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, ErrInvalidRequest
	}
	if params == nil {
		params = consumptiondomain.Params{}
	}
	return params, nil
}

// mergeQuery fills params from the query string without overriding body keys.
func mergeQuery(params consumptiondomain.Params, query map[string][]string) {
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		if _, exists := params[key]; exists {
			continue
		}
		params[key] = values[0]
	}
}

func rpcParams(c *gin.Context) consumptiondomain.Params {
	if value, ok := c.Get(contextRPCParams); ok {
		if params, ok := value.(consumptiondomain.Params); ok {
			return params
		}
	}
	return consumptiondomain.Params{}
}

func rpcID(c *gin.Context) any {
	value, _ := c.Get(contextRPCID)
	return value
}

func respond(c *gin.Context, result any) {
	c.JSON(http.StatusOK, rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      rpcID(c),
		Result:  result,
	})
}

// paramList reads a list of param objects, used by bulk create.
func paramList(params consumptiondomain.Params, key string) ([]consumptiondomain.Params, bool, error) {
	raw, ok := params[key]
	if !ok {
		return nil, false, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, true, ErrInvalidRequest
	}
	out := make([]consumptiondomain.Params, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, true, errors.Join(ErrInvalidRequest, errors.New("record is not an object"))
		}
		out = append(out, consumptiondomain.Params(obj))
	}
	return out, true, nil
}
