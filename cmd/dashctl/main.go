// Command dashctl provisions and inspects a scoreboard over its USB serial
// port.
//
//	dashctl [-port DEV] <ping|version|discover|get-config|set-config FILE|status|reset|restart>
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/internal/hostlog"
)

func main() {
	port := flag.String("port", os.Getenv("SCOREBOARD_PORT"), "serial device (default: first board found)")
	baud := flag.Int("baud", 115200, "baud rate")
	timeout := flag.Duration("timeout", 2*time.Second, "read timeout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dashctl [flags] <ping|version|discover|get-config|set-config FILE|status|reset|restart>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := hostlog.New(os.Stderr, "dashctl", hostlog.Debug())

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "discover" && *port == "" {
		found := scan(*baud, *timeout, func(format string, a ...any) {
			logger.Debug(fmt.Sprintf(format, a...))
		})
		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "dashctl: no board found")
			os.Exit(1)
		}
		for _, address := range found {
			fmt.Println(address)
		}
		return
	}

	if *port == "" {
		found := scan(*baud, *timeout, func(string, ...any) {})
		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "dashctl: no board found, pass -port")
			os.Exit(1)
		}
		*port = found[0]
	}

	rw, err := openPort(*port, *baud, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashctl: %v\n", err)
		os.Exit(1)
	}
	defer rw.Close()

	logger.Debug("connected", "port", *port)
	if err := run(&client{rw: rw}, args, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "dashctl: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command against c and prints the result to out.
func run(c *client, args []string, out io.Writer, logger *slog.Logger) error {
	switch args[0] {
	case "ping":
		start := time.Now()
		if err := c.ping([]byte("dashctl")); err != nil {
			return err
		}
		fmt.Fprintf(out, "pong in %s\n", time.Since(start).Round(time.Millisecond))

	case "version":
		major, minor, cfgVersion, err := c.version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "firmware %d.%d, config version %d\n", major, minor, cfgVersion)

	case "discover":
		ok, err := c.discover()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("device is not a scoreboard")
		}
		fmt.Fprintln(out, "scoreboard")

	case "get-config":
		cfg, err := c.getConfig()
		if err != nil {
			return err
		}
		return writeYAML(out, fromConfig(&cfg))

	case "set-config":
		if len(args) < 2 {
			return fmt.Errorf("set-config needs a file")
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		return setConfigFrom(c, f, out, logger)

	case "status":
		st, err := c.status()
		if err != nil {
			return err
		}
		return writeYAML(out, newStatusReport(&st))

	case "reset":
		if err := c.reset(); err != nil {
			return err
		}
		fmt.Fprintln(out, "config wiped")

	case "restart":
		if err := c.restart(); err != nil {
			return err
		}
		fmt.Fprintln(out, "restarting")

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func setConfigFrom(c *client, r io.Reader, out io.Writer, logger *slog.Logger) error {
	p, err := loadProvision(r)
	if err != nil {
		return err
	}
	cfg, err := p.toConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.setConfig(&cfg); err != nil {
		return err
	}
	logger.Info("config stored", "host", cfg.GetHost(), "port", cfg.Port)
	fmt.Fprintln(out, "config stored, restart the board to apply")
	return nil
}
