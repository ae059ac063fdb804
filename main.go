// ABOUTME: Entry point for the aircast sender
// ABOUTME: Parses CLI flags and streams an audio file to a receiver
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/aircast-audio/aircast-go/internal/clock"
	"github.com/aircast-audio/aircast-go/internal/config"
	"github.com/aircast-audio/aircast-go/internal/discovery"
	"github.com/aircast-audio/aircast-go/internal/player"
	"github.com/aircast-audio/aircast-go/internal/raop"
	"github.com/aircast-audio/aircast-go/internal/source"
	"github.com/aircast-audio/aircast-go/internal/transport"
	"github.com/aircast-audio/aircast-go/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	ntpFile := flag.String("ntp-file", "", "write the current NTP value to <file> and exit")
	port := flag.Int("port", cfg.Port, "receiver port")
	volume := flag.Int("volume", cfg.Volume, "volume (0-100)")
	latency := flag.Int("latency", cfg.Latency, "output latency in frames (negative selects 1000ms)")
	alac := flag.Bool("alac", false, "use ALAC framing for the audio stream")
	wait := flag.Uint64("wait", 0, "start after <wait> milliseconds")
	startNTP := flag.Uint64("start", 0, "start at NTP <start> + <wait>")
	startFile := flag.String("start-file", "", "start at the NTP value read from <file> + <wait>")
	encrypt := flag.Bool("encrypt", false, "encrypt the audio stream")
	password := flag.String("password", "", "optional receiver password")
	secret := flag.String("secret", "", "valid secret for the receiver")
	debug := flag.Int("debug", cfg.Debug, "debug level (0 = silent)")
	interactive := flag.Bool("interactive", false, "interactive commands: p=pause, r=restart, s/q=stop")
	discover := flag.Bool("discover", false, "discover the receiver via mDNS instead of an address argument")
	logFile := flag.String("log-file", "", "also log to this file")
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Printf("error opening log file: %v", err)
			return 1
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	clk := clock.NewSystemClock()

	// Dump the shared clock and exit before anything touches the network
	if *ntpFile != "" {
		if err := clock.WriteNTPFile(*ntpFile, clk); err != nil {
			log.Printf("Cannot write NTP file: %v", err)
			return 1
		}
		return 0
	}

	args := flag.Args()
	var address, filename string
	switch {
	case *discover && len(args) == 1:
		filename = args[0]
	case !*discover && len(args) == 2:
		address, filename = args[0], args[1]
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <server_address> <filename>\n", os.Args[0])
		flag.PrintDefaults()
		return 1
	}

	portNum := *port
	if *discover {
		disc := discovery.NewManager()
		disc.Browse()
		select {
		case receiver := <-disc.Receivers():
			address = receiver.Host
			portNum = receiver.Port
		case <-time.After(10 * time.Second):
			log.Printf("No receiver found after 10 seconds")
			disc.Stop()
			return 1
		}
		disc.Stop()
	}

	latencyTicks := uint32(*latency)
	if *latency < 0 {
		latencyTicks = uint32(clock.MillisToTicks(1000, 44100))
	}

	codec := raop.CodecPCM
	if *alac {
		codec = raop.CodecALAC
	}
	crypto := raop.CryptoClear
	if *encrypt {
		crypto = raop.CryptoRSA
	}

	session := raop.Session{
		Address:    address,
		Port:       portNum,
		Codec:      codec,
		Crypto:     crypto,
		Password:   *password,
		Secret:     *secret,
		Volume:     *volume,
		Latency:    latencyTicks,
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}

	src, err := source.Open(filename, session.BytesPerFrame())
	if err != nil {
		log.Printf("Cannot open %s: %v", filename, err)
		return 1
	}
	defer src.Close()

	start := clock.NTP(*startNTP)
	if *startFile != "" {
		start, err = clock.ReadNTPFile(*startFile)
		if err != nil {
			log.Printf("Cannot read start file: %v", err)
			return 1
		}
	}

	client := transport.NewClient(transport.Config{
		Session: session,
		Clock:   clk,
		Debug:   *debug,
	})

	if err := client.Connect(portNum, true); err != nil {
		client.Destroy()
		log.Printf("Cannot connect to receiver %s: %v", address, err)
		return 1
	}
	defer client.Destroy()
	defer client.Disconnect()

	log.Printf("Connected to %s on port %d, receiver latency is %d ms",
		address, portNum, clock.TicksToMillis(uint64(client.Latency()), client.SampleRate()))

	// Delay the start according to the input parameters
	if start != 0 || *wait > 0 {
		now := clk.Now()
		ntpLatency := clock.TicksToNTP(uint64(client.Latency()), client.SampleRate())
		startAt := player.ComputeStart(clk, start, *wait, client.Latency(), client.SampleRate())

		var inTime uint64
		if startAt+ntpLatency > now {
			inTime = clock.NTPToMillis(startAt - now + ntpLatency)
		}
		log.Printf("Now %s, audio starts at NTP %s (in %d ms)", now.Seconds(), startAt.Seconds(), inTime)

		if err := client.StartAt(startAt); err != nil {
			log.Printf("Cannot schedule start: %v", err)
			return 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := player.NewController(client, clk, cancel)

	var commands chan player.Command
	if *interactive {
		keys := ui.NewKeyControl()
		prog, err := ui.Run(keys)
		if err != nil {
			log.Printf("Cannot start key listener: %v", err)
			return 1
		}
		go prog.Run()
		defer prog.Quit()
		commands = keys.Commands
	} else {
		commands = make(chan player.Command)
	}

	loop := player.NewLoop(client, clk, ctrl, src, commands, session)
	if err := loop.Run(ctx); err != nil {
		log.Printf("Streaming failed: %v", err)
		return 1
	}

	log.Printf("Sent %d frames", loop.Stats().FramesSent)
	return 0
}
