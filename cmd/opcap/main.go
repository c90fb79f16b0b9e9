// Command opcap is the offline analyzer's CLI driver: it opens a capture,
// decodes it against a protocol revision, and prints chat lines and effect
// events to stdout (spec.md §6, "CLI surface").
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/tui"
	"github.com/mgutz/ansi"
	"go.uber.org/zap"

	"github.com/opcap/opcap/internal/actor"
	"github.com/opcap/opcap/internal/bundle"
	"github.com/opcap/opcap/internal/capture"
	"github.com/opcap/opcap/internal/chat"
	"github.com/opcap/opcap/internal/config"
	"github.com/opcap/opcap/internal/dispatch"
	"github.com/opcap/opcap/internal/effect"
	"github.com/opcap/opcap/internal/transport"
)

// Converter and hex-log input carry no real addressing, only a per-message
// direction marker, so the CLI feeds everything through one synthetic
// connection with fixed endpoints standing in for "server" and "client".
var (
	serverEndpoint = transport.Endpoint{Addr: "capture", Port: 1}
	clientEndpoint = transport.Endpoint{Addr: "capture", Port: 2}
	connKey        = transport.NewConnectionKey(serverEndpoint, clientEndpoint)
)

func endpointForDir(dir config.Direction) transport.Endpoint {
	if dir == config.DirectionClient {
		return clientEndpoint
	}
	return serverEndpoint
}

func main() {
	inPath := flag.String("in", "", "path to a converter .bin file or hex-logged text capture")
	revPath := flag.String("revision", "", "path to a YAML protocol-revision file (default: compiled-in revision)")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "opcap: -in is required")
		os.Exit(1)
	}

	log, _ := zap.NewProduction()
	defer log.Sync()

	rev := config.Default()
	if *revPath != "" {
		loaded, err := config.Load(*revPath)
		if err != nil {
			log.Error("loading revision", zap.Error(err))
			os.Exit(1)
		}
		rev = loaded
	}

	if err := run(*inPath, rev, log); err != nil {
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(inPath string, rev *config.Revision, log *zap.Logger) error {
	f, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer f.Close()

	actors := actor.NewTracker()
	chatLines := make([]chat.Record, 0)
	effectLines := make([]effect.Event, 0)
	var bytesProcessed uint64

	b := dispatch.NewBuilder(rev)
	actors.Register(b, config.DirectionServer, config.DirectionClient)

	correlator := effect.NewCorrelator(func(e effect.Event) {
		effectLines = append(effectLines, e)
		printEffect(e)
	})
	correlator.Register(b, config.DirectionServer)

	chatTracker := chat.NewTracker(actors, func(r chat.Record) {
		chatLines = append(chatLines, r)
		printChat(r)
	})
	chatTracker.Register(b, config.DirectionServer, config.DirectionClient)

	d := b.Build()

	feedBundle := func(dir config.Direction, raw []byte) {
		// Converter and hex-log frames are already individually delimited
		// bundles, so a fresh single-shot Reframer per call correctly
		// handles the signature check, size validation and inflate step
		// without needing TCP-level reassembly.
		bytesProcessed += uint64(len(raw))
		rf := bundle.NewReframer(rev, func(transport.ConnectionKey, transport.Endpoint) config.Direction { return dir }, func(e bundle.Emitted) {
			d.Dispatch(e.Direction, e.Bundle)
		}, log)
		rf.Feed(connKey, endpointForDir(dir), raw)
	}

	if looksLikeHexLog(f) {
		frames, err := capture.ReadHexLog(f)
		if err != nil {
			return err
		}
		for _, fr := range frames {
			feedBundle(fr.Direction, fr.Bytes)
		}
	} else {
		f.Seek(0, 0)
		frames, err := capture.ReadConverterFile(f)
		if err != nil {
			return err
		}
		for _, fr := range frames {
			feedBundle(fr.Direction, fr.Bytes)
		}
	}

	printSummaryTable(actors)
	fmt.Printf("%s processed, %d chat lines, %d effect events\n", humanize.Bytes(bytesProcessed), len(chatLines), len(effectLines))
	return nil
}

func printChat(r chat.Record) {
	color := ansi.Cyan
	switch r.Channel {
	case chat.ChannelParty:
		color = ansi.Green
	case chat.ChannelFreeCompany:
		color = ansi.Blue
	case chat.ChannelTell, chat.ChannelTellReceive:
		color = ansi.Magenta
	case chat.ChannelShout, chat.ChannelYell:
		color = ansi.Yellow
	}
	fmt.Printf("%s[%s] %s: %s%s\n", color, r.Channel, r.FromName, r.Message, ansi.Reset)
}

func printEffect(e effect.Event) {
	sign := "+"
	if e.Amount < 0 {
		sign = ""
	}
	fmt.Printf("%s%d -> %d: %s%d%s\n", ansi.White, e.Source, e.Target, sign, e.Amount, ansi.Reset)
}

func printSummaryTable(actors *actor.Tracker) {
	rows := [][]string{}
	for _, m := range actors.PartyMembers {
		rows = append(rows, []string{fmt.Sprintf("%d", m.CharacterID), m.Name, fmt.Sprintf("%d/%d", m.HP, m.MaxHP)})
	}
	tui.Table(os.Stdout, []string{"CharacterID", "Name", "HP"}, rows)
}

func looksLikeHexLog(f *os.File) bool {
	buf := make([]byte, 4)
	n, _ := f.Read(buf)
	f.Seek(0, 0)
	// Converter frames begin with a direction marker byte; hex-log lines
	// begin with a 4-digit year.
	return n == 4 && buf[0] >= '0' && buf[0] <= '9'
}
