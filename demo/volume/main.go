package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jfreymuth/sinkvol"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] get|set PERCENT|up [N]|down [N]|mute|unmute|toggle|watch\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	sinkName := flag.StringP("sink", "s", "", "preferred sink name, the default sink is used while it is absent")
	server := flag.String("server", "", "PulseAudio server string")
	step := flag.IntP("step", "n", 5, "step in percent for up and down")
	limit := flag.Float64("max", 100, "volume limit in percent for up, 0 for none")
	verbose := flag.BoolP("verbose", "v", false, "log protocol activity")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		return 2
	}

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	defer log.Sync()

	c, err := sinkvol.Open(*sinkName,
		sinkvol.ConnServerString(*server),
		sinkvol.ConnApplicationName("sinkvol"),
		sinkvol.ConnLogger(log),
		sinkvol.ConnRefreshMuteOnChange(true),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	if err := run(c, flag.Args(), *step, *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run(c *sinkvol.Conn, args []string, step int, limit float64) error {
	if len(args) > 1 && (args[0] == "up" || args[0] == "down") {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid step %q", args[1])
		}
		step = n
	}

	switch args[0] {
	case "get":
		return printState(c)
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("set needs a percentage")
		}
		p, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid percentage %q", args[1])
		}
		return c.SetVolumePercent(p)
	case "up":
		if limit > 0 {
			return c.AdjustVolumePercentCapped(step, limit)
		}
		return c.AdjustVolumePercent(step)
	case "down":
		return c.AdjustVolumePercent(-step)
	case "mute":
		return c.SetMute(true)
	case "unmute":
		return c.SetMute(false)
	case "toggle":
		return c.ToggleMute()
	case "watch":
		return watch(c)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printState(c *sinkvol.Conn) error {
	vol, err := c.VolumePercent()
	if err != nil {
		return err
	}
	muted, err := c.Muted()
	if err != nil {
		return err
	}
	s := c.Sink()
	name := c.Name()
	if !s.Exists {
		name = s.FallbackName
	}
	if muted {
		fmt.Printf("%s: %d%% (muted)\n", name, vol)
	} else {
		fmt.Printf("%s: %d%%\n", name, vol)
	}
	return nil
}

func watch(c *sinkvol.Conn) error {
	if err := printState(c); err != nil {
		return err
	}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	for {
		select {
		case <-interrupt:
			return nil
		case _, ok := <-c.Events():
			if !ok {
				return nil
			}
			if _, err := c.DrainEvents(); err != nil {
				return err
			}
			if err := printState(c); err != nil {
				return err
			}
		}
	}
}
