package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sigfox.go/pkg/modem"
	pb "github.com/robotalks/sigfox.go/pkg/proto/sigfox/v1"
	"github.com/robotalks/sigfox.go/pkg/sim"
)

type published struct {
	topic   string
	payload []byte
	retain  bool
}

type chanPublisher chan published

func (p chanPublisher) Publish(topic string, payload []byte, retain bool) error {
	p <- published{topic: topic, payload: payload, retain: retain}
	return nil
}

type bridgeTestEnv struct {
	t      *testing.T
	modem  *sim.Modem
	pubCh  chanPublisher
	bridge *Bridge
	cancel func()
}

func newBridgeTestEnv(t *testing.T, run bool) *bridgeTestEnv {
	env := &bridgeTestEnv{
		t:     t,
		modem: sim.New(0xabcd, 12),
		pubCh: make(chanPublisher, DefaultQueueSize+2),
	}
	session := modem.NewSession(sim.NewTransport(env.modem))
	session.Timeout = 100 * time.Millisecond
	env.bridge = New("dev", session, env.pubCh)
	ctx, cancel := context.WithCancel(context.TODO())
	env.cancel = cancel
	if run {
		go env.bridge.Run(ctx)
	}
	return env
}

func (e *bridgeTestEnv) request(sub string, msg proto.Message) {
	data, err := proto.Marshal(msg)
	require.NoError(e.t, err)
	e.bridge.HandleMessage("dev/"+sub, data)
}

func (e *bridgeTestEnv) expect(topic string, msg proto.Message) {
	select {
	case p := <-e.pubCh:
		require.Equal(e.t, topic, p.topic)
		require.NoError(e.t, proto.Unmarshal(p.payload, msg))
	case <-time.After(500 * time.Millisecond):
		e.t.Fatalf("%s: timeout", topic)
	}
}

func TestBridgeSend(t *testing.T) {
	env := newBridgeTestEnv(t, true)
	defer env.cancel()

	env.request(TopicSend, &pb.SendRequest{Seq: 1, Payload: []byte{1, 2, 3}})
	var res pb.SendResult
	env.expect("dev/send/result", &res)
	require.Equal(t, uint32(1), res.Seq)
	require.Equal(t, pb.Code_OK, res.Code)
	require.Empty(t, res.Error)
	require.True(t, res.NextSendMs > 0)
	require.Equal(t, [][]byte{{1, 2, 3}}, env.modem.Sent())

	env.request(TopicSend, &pb.SendRequest{Seq: 2, Payload: []byte{4}})
	env.expect("dev/send/result", &res)
	require.Equal(t, uint32(2), res.Seq)
	require.Equal(t, pb.Code_GATE_CLOSED, res.Code)
	require.Len(t, env.modem.Sent(), 1)
}

func TestBridgePower(t *testing.T) {
	env := newBridgeTestEnv(t, true)
	defer env.cancel()

	env.request(TopicPower, &pb.PowerRequest{Seq: 7, Level: 8})
	var res pb.PowerResult
	env.expect("dev/power/result", &res)
	require.Equal(t, uint32(7), res.Seq)
	require.Equal(t, pb.Code_OK, res.Code)
	require.Equal(t, uint8(2), env.modem.Power)

	for _, level := range []uint32{256, 262, 300, 0xffffffff} {
		env.request(TopicPower, &pb.PowerRequest{Seq: level, Level: level})
		env.expect("dev/power/result", &res)
		require.Equal(t, pb.Code_OK, res.Code)
		require.Equalf(t, uint8(level%6), env.modem.Power, "level %d", level)
	}

	env.bridge.HandleMessage("dev/power", []byte{0xff})
	env.expect("dev/power/result", &res)
	require.Equal(t, pb.Code_ERROR, res.Code)
	require.NotEmpty(t, res.Error)
}

func TestBridgeRejected(t *testing.T) {
	env := newBridgeTestEnv(t, true)
	defer env.cancel()
	env.modem.Status = 'E'
	env.request(TopicSend, &pb.SendRequest{Seq: 3})
	var res pb.SendResult
	env.expect("dev/send/result", &res)
	require.Equal(t, pb.Code_REJECTED, res.Code)
	require.Zero(t, res.NextSendMs)
}

func TestBridgeBusy(t *testing.T) {
	env := newBridgeTestEnv(t, false)
	defer env.cancel()
	for i := 0; i < DefaultQueueSize; i++ {
		env.request(TopicSend, &pb.SendRequest{Seq: uint32(i)})
	}
	env.request(TopicSend, &pb.SendRequest{Seq: 99})
	var res pb.SendResult
	env.expect("dev/send/result", &res)
	require.Equal(t, uint32(99), res.Seq)
	require.Equal(t, pb.Code_ERROR, res.Code)
	require.Equal(t, ErrBusy.Error(), res.Error)
}

func TestBridgeInfo(t *testing.T) {
	env := newBridgeTestEnv(t, false)
	defer env.cancel()
	require.NoError(t, env.bridge.PublishInfo(&pb.DeviceInfo{Name: "dev", Id: 0xabcd, Revision: 12}))
	select {
	case p := <-env.pubCh:
		require.Equal(t, "dev/info", p.topic)
		require.True(t, p.retain)
		var info pb.DeviceInfo
		require.NoError(t, proto.Unmarshal(p.payload, &info))
		require.Equal(t, uint32(0xabcd), info.Id)
	default:
		t.Fatal("info not published")
	}
}

type blockingPublisher struct {
	release chan struct{}
	pubCh   chanPublisher
}

func (p *blockingPublisher) Publish(topic string, payload []byte, retain bool) error {
	<-p.release
	return p.pubCh.Publish(topic, payload, retain)
}

func TestBridgeBusyReplyDoesNotBlockCaller(t *testing.T) {
	env := newBridgeTestEnv(t, false)
	defer env.cancel()
	pub := &blockingPublisher{release: make(chan struct{}), pubCh: env.pubCh}
	env.bridge.Publisher = pub
	for i := 0; i < DefaultQueueSize; i++ {
		env.request(TopicSend, &pb.SendRequest{Seq: uint32(i)})
	}

	done := make(chan struct{})
	go func() {
		env.request(TopicSend, &pb.SendRequest{Seq: 99})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("HandleMessage blocked on publishing the busy reply")
	}

	close(pub.release)
	var res pb.SendResult
	env.expect("dev/send/result", &res)
	require.Equal(t, uint32(99), res.Seq)
	require.Equal(t, ErrBusy.Error(), res.Error)
}
