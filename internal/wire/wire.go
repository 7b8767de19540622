// Package wire implements the binary protocol carried in execute request
// bodies. Messages use the protobuf wire format with the field numbers the
// protocol has always used; encoding is canonical (ascending field order,
// defaults omitted) so decode/re-encode round-trips are byte-identical.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Response status codes.
const (
	StatusOK    int32 = 0
	StatusError int32 = 1
)

// JsRequest is one execute request.
type JsRequest struct {
	Action  int32
	Script  string
	Args    []string
	Timeout int32 // advisory execution budget in milliseconds
}

// JsResponse is the result of one execute request. Result carries a JSON
// payload when Status is StatusOK and an error message otherwise.
type JsResponse struct {
	Status int32
	Result string
}

const (
	reqFieldAction  protowire.Number = 1
	reqFieldScript  protowire.Number = 2
	reqFieldArgs    protowire.Number = 3
	reqFieldTimeout protowire.Number = 4

	respFieldStatus protowire.Number = 1
	respFieldResult protowire.Number = 2
)

// Marshal encodes the request.
func (r *JsRequest) Marshal() []byte {
	var b []byte
	if r.Action != 0 {
		b = protowire.AppendTag(b, reqFieldAction, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(r.Action)))
	}
	if r.Script != "" {
		b = protowire.AppendTag(b, reqFieldScript, protowire.BytesType)
		b = protowire.AppendString(b, r.Script)
	}
	for _, arg := range r.Args {
		b = protowire.AppendTag(b, reqFieldArgs, protowire.BytesType)
		b = protowire.AppendString(b, arg)
	}
	if r.Timeout != 0 {
		b = protowire.AppendTag(b, reqFieldTimeout, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(r.Timeout)))
	}
	return b
}

// UnmarshalRequest decodes a request body. Unknown fields are skipped for
// forward compatibility; malformed bytes are an error, never a panic.
func UnmarshalRequest(data []byte) (*JsRequest, error) {
	var req JsRequest
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("invalid field tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == reqFieldAction && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("invalid action: %w", protowire.ParseError(n))
			}
			req.Action = int32(v)
			data = data[n:]
		case num == reqFieldScript && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("invalid script: %w", protowire.ParseError(n))
			}
			req.Script = v
			data = data[n:]
		case num == reqFieldArgs && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("invalid arg: %w", protowire.ParseError(n))
			}
			req.Args = append(req.Args, v)
			data = data[n:]
		case num == reqFieldTimeout && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("invalid timeout: %w", protowire.ParseError(n))
			}
			req.Timeout = int32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return &req, nil
}

// Marshal encodes the response.
func (r *JsResponse) Marshal() []byte {
	var b []byte
	if r.Status != 0 {
		b = protowire.AppendTag(b, respFieldStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(r.Status)))
	}
	if r.Result != "" {
		b = protowire.AppendTag(b, respFieldResult, protowire.BytesType)
		b = protowire.AppendString(b, r.Result)
	}
	return b
}

// UnmarshalResponse decodes a response body.
func UnmarshalResponse(data []byte) (*JsResponse, error) {
	var resp JsResponse
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("invalid field tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == respFieldStatus && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("invalid status: %w", protowire.ParseError(n))
			}
			resp.Status = int32(v)
			data = data[n:]
		case num == respFieldResult && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("invalid result: %w", protowire.ParseError(n))
			}
			resp.Result = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return &resp, nil
}
