// Command scctl pokes at a running scsynth server: status, version, node
// tree, or a raw OSC command.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/chabad360/go-scsynth/osc"
	"github.com/chabad360/go-scsynth/scsynth"
)

type config struct {
	Server   string        `yaml:"server"`
	ClientID int32         `yaml:"client_id"`
	Timeout  time.Duration `yaml:"timeout"`
}

func defaultConfig() config {
	return config{Server: "127.0.0.1:57110", Timeout: 5 * time.Second}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = home + "/.config/scctl.yaml"
		if _, err := os.Stat(path); err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: scctl [flags] <command>

commands:
  status              server load and object counts
  version             server version
  tree [group]        node tree (default group 1)
  send <addr> [args]  raw OSC command; int, float and string arguments
                      are inferred from each token

flags:
`)
	pflag.PrintDefaults()
}

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "config file (default ~/.config/scctl.yaml)")
		server     = pflag.StringP("server", "s", "", "scsynth address, host:port")
		clientID   = pflag.Int32("client-id", -1, "client index in the server's client table")
		timeout    = pflag.Duration("timeout", 0, "reply timeout")
		verbose    = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Usage = usage
	pflag.Parse()

	if pflag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scctl:", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *clientID >= 0 {
		cfg.ClientID = *clientID
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	log := zap.NewNop()
	if *verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintln(os.Stderr, "scctl:", err)
			os.Exit(1)
		}
	}

	if err := run(cfg, log, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "scctl:", err)
		os.Exit(1)
	}
}

func run(cfg config, log *zap.Logger, argv []string) error {
	c, err := scsynth.Connect(scsynth.Options{
		Addr:         cfg.Server,
		ClientID:     cfg.ClientID,
		ReplyTimeout: cfg.Timeout,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	switch argv[0] {
	case "status":
		return printStatus(c)
	case "version":
		v, err := c.Version(0)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case "tree":
		return printTree(c, argv[1:])
	case "send":
		return sendRaw(c, argv[1:])
	default:
		return fmt.Errorf("unknown command %q", argv[0])
	}
}

func printStatus(c *scsynth.Client) error {
	s, err := c.Status(0)
	if err != nil {
		return err
	}
	fmt.Printf("ugens:     %d\n", s.NumUgens)
	fmt.Printf("synths:    %d\n", s.NumSynths)
	fmt.Printf("groups:    %d\n", s.NumGroups)
	fmt.Printf("synthdefs: %d\n", s.NumSynthdefs)
	fmt.Printf("cpu:       %.1f%% avg, %.1f%% peak\n", s.AvgCPU, s.PeakCPU)
	fmt.Printf("rate:      %.0f Hz nominal, %.3f Hz actual\n", s.NominalSR, s.ActualSR)
	return nil
}

func printTree(c *scsynth.Client, argv []string) error {
	group := c.DefaultGroup()
	if len(argv) > 0 {
		id, err := strconv.ParseInt(argv[0], 10, 32)
		if err != nil {
			return fmt.Errorf("bad group id %q", argv[0])
		}
		group = c.GroupByID(int32(id))
	}

	tree, err := group.QueryTree(true, 0)
	if err != nil {
		return err
	}
	printTreeNode(tree, 0)
	return nil
}

func printTreeNode(n *scsynth.TreeNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsGroup {
		fmt.Printf("%s%d group\n", indent, n.ID)
		for _, child := range n.Children {
			printTreeNode(child, depth+1)
		}
		return
	}

	fmt.Printf("%s%d %s", indent, n.ID, n.DefName)
	for name, value := range n.Controls {
		fmt.Printf(" %s=%v", name, value)
	}
	fmt.Println()
}

func sendRaw(c *scsynth.Client, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("send needs an OSC address")
	}

	msg := osc.NewMessage(argv[0])
	for _, tok := range argv[1:] {
		if err := msg.Append(parseToken(tok)); err != nil {
			return err
		}
	}

	// Commands with a known reply get awaited so the output is useful.
	if _, ok := scsynth.ReplyAddress(msg.Address); ok {
		v, err := c.SendAwait(msg, 0)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	}
	return c.Send(msg)
}

// parseToken infers an OSC argument from a CLI token: int32, then float32,
// then string.
func parseToken(tok string) interface{} {
	if i, err := strconv.ParseInt(tok, 10, 32); err == nil {
		return int32(i)
	}
	if f, err := strconv.ParseFloat(tok, 32); err == nil {
		return float32(f)
	}
	return tok
}
