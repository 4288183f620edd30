package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/sigfox.go/pkg/bridge"
	"github.com/robotalks/sigfox.go/pkg/mqtt"
	pb "github.com/robotalks/sigfox.go/pkg/proto/sigfox/v1"
)

var (
	mqttURL = "mqtt://localhost:1883/sigfox/"
)

func init() {
	if val := os.Getenv("SIGFOX_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

// messageFor creates the message type published on topic.
func messageFor(topic string) proto.Message {
	switch {
	case strings.HasSuffix(topic, "/"+bridge.TopicSendResult):
		return &pb.SendResult{}
	case strings.HasSuffix(topic, "/"+bridge.TopicPowerResult):
		return &pb.PowerResult{}
	case strings.HasSuffix(topic, "/"+bridge.TopicSend):
		return &pb.SendRequest{}
	case strings.HasSuffix(topic, "/"+bridge.TopicPower):
		return &pb.PowerRequest{}
	case strings.HasSuffix(topic, "/"+bridge.TopicInfo):
		return &pb.DeviceInfo{}
	}
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		msg := messageFor(topic)
		if msg == nil {
			log.Printf("%s: %d bytes", topic, len(payload))
			return
		}
		if len(payload) == 0 {
			log.Printf("%s: <cleared>", topic)
			return
		}
		if err := proto.Unmarshal(payload, msg); err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, proto.MessageName(msg), msg.String())
	}))
	<-(chan struct{})(nil)
}
