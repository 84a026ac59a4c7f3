// Package rpcclient is the HTTP client side of the daemon's JSON-RPC
// endpoint, used by the command line tool.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	jsonrpc "github.com/openfill/openfill/daemon/rpc"
	"github.com/openfill/openfill/daemon/types"
)

type client struct {
	User      string
	Pass      string
	Protocol  string
	RPCServer string
}

type Client interface {
	ResolveOrder(data types.RequestResolve) (json.RawMessage, error)
	OpenOrder(data types.RequestOpen) (json.RawMessage, error)
	FillOrder(data types.RequestFill) (json.RawMessage, error)
	GetOrder(data types.RequestOrder) (json.RawMessage, error)
	ListOrders(data types.RequestListOrders) (json.RawMessage, error)
	SettleOrder(data types.RequestOrder) (json.RawMessage, error)
	ExpireOrder(data types.RequestOrder) (json.RawMessage, error)
	Status() (json.RawMessage, error)
}

func NewClient(userName string, password string, protocol string, rpcServer string) Client {
	return &client{
		User:      userName,
		Pass:      password,
		Protocol:  protocol,
		RPCServer: rpcServer,
	}
}

// SendPostRequest sends the marshalled JSON-RPC command using HTTP-POST mode
// and returns either the result field or the error field of the response.
func (c *client) SendPostRequest(method string, jsonData []byte) (json.RawMessage, error) {
	payload := jsonrpc.Request{
		Version: "2.0",
		Method:  method,
		Params:  json.RawMessage(jsonData),
	}
	marshalledJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := c.Protocol + "://" + c.RPCServer
	bodyReader := bytes.NewReader(marshalledJSON)
	httpRequest, err := http.NewRequest("POST", url, bodyReader)
	if err != nil {
		return nil, err
	}
	httpRequest.Close = true
	httpRequest.Header.Set("Content-Type", "application/json")

	// Configure basic access authorization.
	httpRequest.SetBasicAuth(c.User, c.Pass)

	httpResponse, err := http.DefaultClient.Do(httpRequest)
	if err != nil {
		return nil, err
	}

	respBytes, err := io.ReadAll(httpResponse.Body)
	httpResponse.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading json reply: %v", err)
	}

	var resp jsonrpc.Response
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
			if len(respBytes) == 0 {
				return nil, fmt.Errorf("%d %s", httpResponse.StatusCode,
					http.StatusText(httpResponse.StatusCode))
			}
			return nil, fmt.Errorf("%s", respBytes)
		}
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%s : %s", resp.Error.Message, resp.Error.Data)
	}
	return resp.Result, nil
}

func (c *client) ResolveOrder(data types.RequestResolve) (json.RawMessage, error) {
	return c.call("resolveOrder", data)
}

func (c *client) OpenOrder(data types.RequestOpen) (json.RawMessage, error) {
	return c.call("openOrder", data)
}

func (c *client) FillOrder(data types.RequestFill) (json.RawMessage, error) {
	return c.call("fillOrder", data)
}

func (c *client) GetOrder(data types.RequestOrder) (json.RawMessage, error) {
	return c.call("getOrder", data)
}

func (c *client) ListOrders(data types.RequestListOrders) (json.RawMessage, error) {
	return c.call("listOrders", data)
}

func (c *client) SettleOrder(data types.RequestOrder) (json.RawMessage, error) {
	return c.call("settleOrder", data)
}

func (c *client) ExpireOrder(data types.RequestOrder) (json.RawMessage, error) {
	return c.call("expireOrder", data)
}

func (c *client) Status() (json.RawMessage, error) {
	return c.call("status", struct{}{})
}

func (c *client) call(method string, data interface{}) (json.RawMessage, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := c.SendPostRequest(method, jsonData)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
