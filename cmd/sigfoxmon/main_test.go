package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	pb "github.com/robotalks/sigfox.go/pkg/proto/sigfox/v1"
)

func TestMessageFor(t *testing.T) {
	assert.IsType(t, &pb.SendResult{}, messageFor("dev1/send/result"))
	assert.IsType(t, &pb.SendRequest{}, messageFor("dev1/send"))
	assert.IsType(t, &pb.PowerResult{}, messageFor("dev1/power/result"))
	assert.IsType(t, &pb.PowerRequest{}, messageFor("dev1/power"))
	assert.IsType(t, &pb.DeviceInfo{}, messageFor("dev1/info"))
	assert.Nil(t, messageFor("dev1/other"))
}
