// Package v1 defines the bridge messages described in sigfox.proto.
package v1

import (
	proto "github.com/golang/protobuf/proto"
)

type Code int32

const (
	Code_REJECTED    Code = 0
	Code_OK          Code = 1
	Code_GATE_CLOSED Code = 2
	Code_ERROR       Code = 3
)

var Code_name = map[int32]string{
	0: "REJECTED",
	1: "OK",
	2: "GATE_CLOSED",
	3: "ERROR",
}

var Code_value = map[string]int32{
	"REJECTED":    0,
	"OK":          1,
	"GATE_CLOSED": 2,
	"ERROR":       3,
}

func (x Code) String() string {
	return proto.EnumName(Code_name, int32(x))
}

type SendRequest struct {
	Seq     uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *SendRequest) Reset()         { *m = SendRequest{} }
func (m *SendRequest) String() string { return proto.CompactTextString(m) }
func (*SendRequest) ProtoMessage()    {}

func (m *SendRequest) GetSeq() uint32 {
	if m != nil {
		return m.Seq
	}
	return 0
}

func (m *SendRequest) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

type SendResult struct {
	Seq        uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Code       Code   `protobuf:"varint,2,opt,name=code,proto3,enum=sigfox.v1.Code" json:"code,omitempty"`
	Error      string `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	NextSendMs uint64 `protobuf:"varint,4,opt,name=next_send_ms,json=nextSendMs,proto3" json:"next_send_ms,omitempty"`
}

func (m *SendResult) Reset()         { *m = SendResult{} }
func (m *SendResult) String() string { return proto.CompactTextString(m) }
func (*SendResult) ProtoMessage()    {}

func (m *SendResult) GetSeq() uint32 {
	if m != nil {
		return m.Seq
	}
	return 0
}

func (m *SendResult) GetCode() Code {
	if m != nil {
		return m.Code
	}
	return Code_REJECTED
}

func (m *SendResult) GetError() string {
	if m != nil {
		return m.Error
	}
	return ""
}

func (m *SendResult) GetNextSendMs() uint64 {
	if m != nil {
		return m.NextSendMs
	}
	return 0
}

type PowerRequest struct {
	Seq   uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Level uint32 `protobuf:"varint,2,opt,name=level,proto3" json:"level,omitempty"`
}

func (m *PowerRequest) Reset()         { *m = PowerRequest{} }
func (m *PowerRequest) String() string { return proto.CompactTextString(m) }
func (*PowerRequest) ProtoMessage()    {}

func (m *PowerRequest) GetSeq() uint32 {
	if m != nil {
		return m.Seq
	}
	return 0
}

func (m *PowerRequest) GetLevel() uint32 {
	if m != nil {
		return m.Level
	}
	return 0
}

type PowerResult struct {
	Seq   uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Code  Code   `protobuf:"varint,2,opt,name=code,proto3,enum=sigfox.v1.Code" json:"code,omitempty"`
	Error string `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *PowerResult) Reset()         { *m = PowerResult{} }
func (m *PowerResult) String() string { return proto.CompactTextString(m) }
func (*PowerResult) ProtoMessage()    {}

func (m *PowerResult) GetSeq() uint32 {
	if m != nil {
		return m.Seq
	}
	return 0
}

func (m *PowerResult) GetCode() Code {
	if m != nil {
		return m.Code
	}
	return Code_REJECTED
}

func (m *PowerResult) GetError() string {
	if m != nil {
		return m.Error
	}
	return ""
}

type DeviceInfo struct {
	Name     string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Id       uint32 `protobuf:"varint,2,opt,name=id,proto3" json:"id,omitempty"`
	Revision uint32 `protobuf:"varint,3,opt,name=revision,proto3" json:"revision,omitempty"`
	Host     string `protobuf:"bytes,4,opt,name=host,proto3" json:"host,omitempty"`
}

func (m *DeviceInfo) Reset()         { *m = DeviceInfo{} }
func (m *DeviceInfo) String() string { return proto.CompactTextString(m) }
func (*DeviceInfo) ProtoMessage()    {}

func (m *DeviceInfo) GetName() string {
	if m != nil {
		return m.Name
	}
	return ""
}

func (m *DeviceInfo) GetId() uint32 {
	if m != nil {
		return m.Id
	}
	return 0
}

func (m *DeviceInfo) GetRevision() uint32 {
	if m != nil {
		return m.Revision
	}
	return 0
}

func (m *DeviceInfo) GetHost() string {
	if m != nil {
		return m.Host
	}
	return ""
}

func init() {
	proto.RegisterEnum("sigfox.v1.Code", Code_name, Code_value)
	proto.RegisterType((*SendRequest)(nil), "sigfox.v1.SendRequest")
	proto.RegisterType((*SendResult)(nil), "sigfox.v1.SendResult")
	proto.RegisterType((*PowerRequest)(nil), "sigfox.v1.PowerRequest")
	proto.RegisterType((*PowerResult)(nil), "sigfox.v1.PowerResult")
	proto.RegisterType((*DeviceInfo)(nil), "sigfox.v1.DeviceInfo")
}
