package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/sigfox.go/pkg/bridge"
	"github.com/robotalks/sigfox.go/pkg/env"
	fx "github.com/robotalks/sigfox.go/pkg/framework"
	"github.com/robotalks/sigfox.go/pkg/modem"
	"github.com/robotalks/sigfox.go/pkg/mqtt"
	pb "github.com/robotalks/sigfox.go/pkg/proto/sigfox/v1"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := env.Load()
	if err != nil {
		glog.Exit(err)
	}
	name := conf.DeviceName()

	session, port, err := conf.OpenSession()
	if err != nil {
		glog.Exitf("open %s: %v", conf.Port, err)
	}
	defer port.Close()

	info, err := start(context.Background(), conf, session)
	if err != nil {
		glog.Exitf("modem %s: %v", conf.Port, err)
	}
	info.Name = name
	info.Host = env.HostID()
	glog.Infof("modem %s: id=%08X rev=%d", conf.Port, info.Id, info.Revision)

	q, err := conf.NewQueue()
	if err != nil {
		glog.Exit(err)
	}
	b := bridge.New(name, session, &bridge.QueuePublisher{Queue: q})
	q.OnConnect = func(*mqtt.Queue) {
		if err := b.PublishInfo(info); err != nil {
			glog.Errorf("publish info: %v", err)
		}
	}
	b.Attach(q)
	if err = q.Connect(); err != nil {
		glog.Exitf("connect %s: %v", conf.MQTTBrokerURL, err)
	}
	defer q.Close()

	runner := fx.NewRunner().HandleSignals()
	runner.Go(
		fx.NamedRun("bridge", b),
		fx.NamedRun("port", fx.RunFunc(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return nil
			case <-port.Done():
				return port.Err()
			}
		})),
	)
	if err = runner.Wait(); err != nil {
		glog.Exit(err)
	}
}

func start(ctx context.Context, conf *env.Config, session *modem.Session) (*pb.DeviceInfo, error) {
	if err := session.Begin(ctx); err != nil {
		return nil, err
	}
	if level, ok := conf.PowerLevel(); ok {
		res, err := session.SetPower(ctx, uint8(level))
		if err != nil {
			return nil, err
		}
		glog.Infof("power %s: %s", level, res)
	}
	id, err := session.ID(ctx)
	if err != nil {
		return nil, err
	}
	rev, err := session.Rev(ctx)
	if err != nil {
		return nil, err
	}
	return &pb.DeviceInfo{Id: id, Revision: uint32(rev)}, nil
}
