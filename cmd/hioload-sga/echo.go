// File: cmd/hioload-sga/echo.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/momentics/hioload-sga/facade"
	"github.com/momentics/hioload-sga/pool"
	"github.com/momentics/hioload-sga/sga"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Send messages through the loopback queue and reflect them",
	RunE:  runEcho,
}

func init() {
	echoCmd.Flags().Int("count", 1000, "messages to send")
	echoCmd.Flags().Int("size", 1024, "payload bytes per message")
	echoCmd.Flags().Int("cpu", -1, "pin the worker to this cpu (-1 leaves it unpinned)")
	echoCmd.Flags().String("metrics-addr", "", "serve /metrics on this address and wait for a signal after the run")
}

func runEcho(cmd *cobra.Command, _ []string) error {
	count, _ := cmd.Flags().GetInt("count")
	size, _ := cmd.Flags().GetInt("size")
	cpu, _ := cmd.Flags().GetInt("cpu")
	addr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := facade.New(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if cpu >= 0 {
		if err := s.Pin(cpu); err != nil {
			return err
		}
	}

	payload := bytes.Repeat([]byte{0x5A}, size)
	start := time.Now()
	for i := 0; i < count; i++ {
		if err := roundTrip(s, payload, uint64(i)); err != nil {
			return errors.Wrapf(err, "message %d", i)
		}
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d messages, %s payload each, %s in %s (%.0f msg/s)\n",
		count, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(2*count*size)), elapsed,
		float64(count)/elapsed.Seconds())
	printSorted(cmd, s.Probes().DumpState())

	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(s.Metrics().Gatherer(), promhttp.HandlerOpts{})}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(cmd.ErrOrStderr(), "metrics server:", err)
		}
	}()
	fmt.Fprintf(out, "serving metrics on %s, interrupt to exit\n", addr)
	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, syscall.SIGTERM, os.Interrupt)
	<-terminate
	return srv.Close()
}

// roundTrip sends one message, reflects it and checks the reflected payload.
func roundTrip(s *facade.Session, payload []byte, seq uint64) error {
	cc := s.NewCopyContext()
	leaf, err := payloadLeaf(s, cc, payload)
	if err != nil {
		cc.Release()
		return err
	}
	msg := sga.NewSingle()
	msg.SetMessage(leaf)
	err = s.Send(msg, cc, uint64(time.Now().UnixNano()), seq)
	sga.Release(msg)
	if err != nil {
		return err
	}

	pkt, ok := s.Receive()
	if !ok {
		return errors.New("message dropped")
	}
	if err := s.Echo(pkt); err != nil {
		return err
	}
	reply, ok := s.Receive()
	if !ok {
		return errors.New("reply dropped")
	}
	defer reply.Release()
	in, err := s.Decode(reply)
	if err != nil {
		return err
	}
	defer in.Release()
	if in.FlowID != seq || !bytes.Equal(in.Object.(*sga.Single).Message().Bytes(), payload) {
		return errors.New("reply does not match")
	}
	return nil
}

// payloadLeaf places payload in a TX item when it is large enough to go out
// zero-copy, and copies it otherwise.
func payloadLeaf(s *facade.Session, cc *sga.CopyContext, payload []byte) (*sga.ByteString, error) {
	if cc.ShouldCopy(payload) {
		return s.NewByteString(cc, payload)
	}
	buf, ok := s.Manager().Allocate(pool.TxRegion)
	if !ok {
		return nil, errors.New("tx region exhausted")
	}
	if _, err := buf.Write(payload); err != nil {
		buf.Release()
		return nil, err
	}
	md, err := buf.Freeze(0, buf.Len())
	if err != nil {
		return nil, err
	}
	return sga.RefCountedBytes(md), nil
}
