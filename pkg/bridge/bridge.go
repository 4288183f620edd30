// Package bridge exposes a modem session to remote applications.
package bridge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/sigfox.go/pkg/modem"
	pb "github.com/robotalks/sigfox.go/pkg/proto/sigfox/v1"
)

// Topics relative to the device name.
const (
	TopicSend        = "send"
	TopicSendResult  = "send/result"
	TopicPower       = "power"
	TopicPowerResult = "power/result"
	TopicInfo        = "info"
)

// DefaultQueueSize is the number of requests waiting for the modem.
const DefaultQueueSize = 16

// ErrBusy is replied when the request queue is full.
var ErrBusy = errors.New("request queue full")

// Device is the subset of modem.Session used by the bridge.
type Device interface {
	Send(context.Context, []byte) (modem.Result, error)
	SetPower(context.Context, uint8) (modem.Result, error)
	ReadyIn() time.Duration
}

// Publisher publishes encoded messages.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}

// Bridge executes requests received on "<name>/send" and "<name>/power"
// one at a time and publishes results on the corresponding result topics.
type Bridge struct {
	Name      string
	Device    Device
	Publisher Publisher

	requests chan request
}

type request struct {
	topic   string
	payload []byte
}

// New creates a Bridge.
func New(name string, dev Device, pub Publisher) *Bridge {
	return &Bridge{
		Name:      name,
		Device:    dev,
		Publisher: pub,
		requests:  make(chan request, DefaultQueueSize),
	}
}

// Topic returns the full topic name under the device.
func (b *Bridge) Topic(sub string) string {
	return b.Name + "/" + sub
}

// HandleMessage queues a request received on topic.
// It never blocks: when the queue is full the request is answered with
// ErrBusy from a separate goroutine, as the caller may be the MQTT client
// which must keep processing acknowledgments.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	sub := strings.TrimPrefix(topic, b.Name+"/")
	select {
	case b.requests <- request{topic: sub, payload: payload}:
	default:
		glog.Warningf("%s: %v", topic, ErrBusy)
		go b.replyErr(sub, payload, ErrBusy)
	}
}

// PublishInfo publishes the retained device info.
func (b *Bridge) PublishInfo(info *pb.DeviceInfo) error {
	data, err := proto.Marshal(info)
	if err != nil {
		return err
	}
	return b.Publisher.Publish(b.Topic(TopicInfo), data, true)
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-b.requests:
			b.handle(ctx, req)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, req request) {
	switch req.topic {
	case TopicSend:
		b.handleSend(ctx, req.payload)
	case TopicPower:
		b.handlePower(ctx, req.payload)
	default:
		glog.Warningf("unknown topic %q", req.topic)
	}
}

func (b *Bridge) handleSend(ctx context.Context, payload []byte) {
	var msg pb.SendRequest
	result := &pb.SendResult{}
	if err := proto.Unmarshal(payload, &msg); err != nil {
		result.Code, result.Error = pb.Code_ERROR, err.Error()
	} else {
		result.Seq = msg.Seq
		res, err := b.Device.Send(ctx, msg.Payload)
		result.Code = codeOf(res, err)
		if err != nil {
			glog.Errorf("send #%d failed: %v", msg.Seq, err)
			result.Error = err.Error()
		} else {
			glog.Infof("send #%d (%d bytes): %v", msg.Seq, len(msg.Payload), res)
		}
	}
	result.NextSendMs = uint64(b.Device.ReadyIn() / time.Millisecond)
	b.publish(TopicSendResult, result)
}

func (b *Bridge) handlePower(ctx context.Context, payload []byte) {
	var msg pb.PowerRequest
	result := &pb.PowerResult{}
	if err := proto.Unmarshal(payload, &msg); err != nil {
		result.Code, result.Error = pb.Code_ERROR, err.Error()
	} else {
		result.Seq = msg.Seq
		level := modem.NormalizePower(uint8(msg.Level % 6))
		res, err := b.Device.SetPower(ctx, uint8(level))
		result.Code = codeOf(res, err)
		if err != nil {
			glog.Errorf("power #%d failed: %v", msg.Seq, err)
			result.Error = err.Error()
		} else {
			glog.Infof("power #%d level %v: %v", msg.Seq, level, res)
		}
	}
	b.publish(TopicPowerResult, result)
}

// replyErr answers a request without executing it.
func (b *Bridge) replyErr(sub string, payload []byte, err error) {
	switch sub {
	case TopicSend:
		var msg pb.SendRequest
		proto.Unmarshal(payload, &msg)
		b.publish(TopicSendResult, &pb.SendResult{Seq: msg.Seq, Code: pb.Code_ERROR, Error: err.Error()})
	case TopicPower:
		var msg pb.PowerRequest
		proto.Unmarshal(payload, &msg)
		b.publish(TopicPowerResult, &pb.PowerResult{Seq: msg.Seq, Code: pb.Code_ERROR, Error: err.Error()})
	}
}

func (b *Bridge) publish(sub string, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err == nil {
		err = b.Publisher.Publish(b.Topic(sub), data, false)
	}
	if err != nil {
		glog.Errorf("publish %s error: %v", sub, err)
	}
}

func codeOf(res modem.Result, err error) pb.Code {
	if err != nil {
		return pb.Code_ERROR
	}
	switch res {
	case modem.ResultOK:
		return pb.Code_OK
	case modem.ResultGateClosed:
		return pb.Code_GATE_CLOSED
	default:
		return pb.Code_REJECTED
	}
}
