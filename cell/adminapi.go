// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cell

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
	"github.com/luxfi/dht/rpc"
)

// RequestKind discriminates the handful of Admin requests this cell answers
// (§6 "Requests are answered by invoking InterfaceApi::handle_request"). A
// real conductor's Admin surface carries dozens of request kinds (DNA
// install, agent key generation, app activation, ...); this module only
// specifies the cascade-facing subset the validation pipeline itself can
// answer without an external collaborator.
type RequestKind string

const (
	RequestGetElement       RequestKind = "GetElement"
	RequestGetLinks         RequestKind = "GetLinks"
	RequestGetAgentActivity RequestKind = "GetAgentActivity"
	RequestAuthorElement    RequestKind = "AuthorElement"
)

// Request is the Admin-socket payload this cell's InterfaceAPI decodes.
type Request struct {
	Kind RequestKind

	Hash      hash.Hash // GetElement
	Base      hash.Hash // GetLinks
	TagPrefix []byte    // GetLinks

	Author         ids.NodeID // GetAgentActivity
	MinSeq, MaxSeq uint32     // GetAgentActivity

	Element *chain.Element // AuthorElement
}

// Response is what every Request above answers with; only the field(s)
// relevant to the Request's Kind are populated.
type Response struct {
	OK  bool
	Err string

	Element  *chain.Element
	Links    []chain.Header
	Activity []chain.Header
}

// adminAPI implements rpc.InterfaceAPI over a Cell's cascade and producer
// entry point.
type adminAPI struct {
	cell *Cell
}

var _ rpc.InterfaceAPI = (*adminAPI)(nil)

// AdminAPI returns the rpc.InterfaceAPI this cell answers Admin-socket
// requests with (§6).
func (c *Cell) AdminAPI() rpc.InterfaceAPI {
	return &adminAPI{cell: c}
}

func (a *adminAPI) HandleRequest(ctx context.Context, requestBytes []byte) ([]byte, error) {
	var req Request
	if err := rpc.DecodePayload(requestBytes, &req); err != nil {
		return rpc.EncodePayload(Response{Err: err.Error()})
	}

	var resp Response
	switch req.Kind {
	case RequestGetElement:
		if el, ok := a.cell.Cascade().RetrieveElement(ctx, req.Hash); ok {
			resp = Response{OK: true, Element: &el}
		} else {
			resp = Response{Err: "element not found"}
		}

	case RequestGetLinks:
		headers := a.cell.Cascade().DhtGetLinks(ctx, req.Base, req.TagPrefix)
		resp = Response{OK: true, Links: headers}

	case RequestGetAgentActivity:
		headers := a.cell.Cascade().DhtGetAgentActivity(ctx, req.Author, req.MinSeq, req.MaxSeq)
		resp = Response{OK: true, Activity: headers}

	case RequestAuthorElement:
		if req.Element == nil {
			resp = Response{Err: "missing element"}
			break
		}
		if err := a.cell.AuthorElement(*req.Element); err != nil {
			resp = Response{Err: err.Error()}
			break
		}
		resp = Response{OK: true}

	default:
		resp = Response{Err: "unknown request kind"}
	}

	return rpc.EncodePayload(resp)
}
