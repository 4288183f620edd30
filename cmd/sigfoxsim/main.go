package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/aymanbagabas/go-pty"
	"github.com/golang/glog"
	"github.com/jessevdk/go-flags"

	fx "github.com/robotalks/sigfox.go/pkg/framework"
	"github.com/robotalks/sigfox.go/pkg/modem"
	"github.com/robotalks/sigfox.go/pkg/sim"
)

type options struct {
	ID      string `short:"i" long:"id" default:"0001A2B3" description:"Device ID in hex"`
	Rev     uint8  `short:"r" long:"rev" default:"12" description:"Firmware revision, 0 replies KO"`
	Reject  bool   `long:"reject" description:"Reply KO to status queries"`
	Verbose int    `short:"v" long:"verbose" default:"0" description:"Log verbosity"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	id, err := strconv.ParseUint(opts.ID, 16, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid id %q: %v\n", opts.ID, err)
		os.Exit(1)
	}
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(opts.Verbose))
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	m := sim.New(uint32(id), opts.Rev)
	if opts.Reject {
		m.Status = 'K'
	}

	tty, err := pty.New()
	if err != nil {
		glog.Exitf("create pty: %v", err)
	}
	defer tty.Close()
	fmt.Printf("modem %08X on %s\n", id, tty.Name())
	fmt.Printf("connect with -port serial://%s\n", tty.Name())

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("modem", fx.RunFunc(func(ctx context.Context) error {
		return sim.Serve(ctx, m, tty)
	})))
	if err = runner.Wait(); err != nil {
		glog.Errorf("modem: %v", err)
	}
	glog.Infof("sent %d messages, power %s", len(m.Sent()), modem.NormalizePower(m.Power))
}
