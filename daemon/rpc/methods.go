package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/openfill/openfill/daemon/types"
	"github.com/openfill/openfill/pkg/engine"
	"github.com/openfill/openfill/pkg/opener"
)

type resolveOrder struct{}

func ResolveOrder() Method {
	return &resolveOrder{}
}

func (a *resolveOrder) Name() string {
	return "resolveOrder"
}

func (a *resolveOrder) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestResolve
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	intent, err := req.Intent()
	if err != nil {
		return nil, err
	}

	resolved, err := eng.Resolve(intent)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resolved)
}

type openOrder struct{}

func OpenOrder() Method {
	return &openOrder{}
}

func (a *openOrder) Name() string {
	return "openOrder"
}

func (a *openOrder) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestOpen
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	intent, err := req.Intent()
	if err != nil {
		return nil, err
	}

	id, err := eng.Open(context.Background(), intent, opener.Authorization{Signature: req.Signature})
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.ResponseOpen{OrderID: id})
}

type fillOrder struct{}

func FillOrder() Method {
	return &fillOrder{}
}

func (a *fillOrder) Name() string {
	return "fillOrder"
}

func (a *fillOrder) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestFill
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}

	status, err := eng.Fill(req.OrderID, req.OriginData, req.Filler, req.FillerData)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.ResponseFill{OrderID: req.OrderID, Status: status.String()})
}

type getOrder struct{}

func GetOrder() Method {
	return &getOrder{}
}

func (a *getOrder) Name() string {
	return "getOrder"
}

func (a *getOrder) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestOrder
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}

	record, err := eng.Order(req.OrderID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.ResponseOrder{
		Order:  record.Order,
		Status: record.Status.String(),
		Legs:   record.Legs,
	})
}

type listOrders struct{}

func ListOrders() Method {
	return &listOrders{}
}

func (a *listOrders) Name() string {
	return "listOrders"
}

func (a *listOrders) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestListOrders
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
	}
	statuses, err := types.ParseStatuses(req.Statuses)
	if err != nil {
		return nil, err
	}

	records, err := eng.Orders(statuses...)
	if err != nil {
		return nil, err
	}

	out := make([]types.ResponseOrder, 0, len(records))
	for _, record := range records {
		out = append(out, types.ResponseOrder{
			Order:  record.Order,
			Status: record.Status.String(),
			Legs:   record.Legs,
		})
	}
	return json.Marshal(out)
}

type settleOrder struct{}

func SettleOrder() Method {
	return &settleOrder{}
}

func (a *settleOrder) Name() string {
	return "settleOrder"
}

func (a *settleOrder) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestOrder
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}

	if err := eng.Settle(context.Background(), req.OrderID); err != nil {
		return nil, err
	}
	return json.Marshal("order settled")
}

type status struct{}

func Status() Method {
	return &status{}
}

func (a *status) Name() string {
	return "status"
}

func (a *status) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var resp struct {
		ChainID string   `json:"chainId"`
		Schemas []string `json:"schemas"`
	}
	resp.ChainID = eng.ChainID().String()
	for _, id := range eng.Registry().Types() {
		resp.Schemas = append(resp.Schemas, id.Hex())
	}
	return json.Marshal(resp)
}

type expireOrder struct{}

func ExpireOrder() Method {
	return &expireOrder{}
}

func (a *expireOrder) Name() string {
	return "expireOrder"
}

func (a *expireOrder) Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error) {
	var req types.RequestOrder
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}

	if err := eng.Expire(context.Background(), req.OrderID); err != nil {
		return nil, err
	}
	return json.Marshal("order expired")
}
