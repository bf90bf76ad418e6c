package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

type CLI struct {
	client     *Client
	serverAddr string
	rl         *readline.Instance
	running    bool
}

func NewCLI(client *Client, serverAddr string) *CLI {
	return &CLI{
		client:     client,
		serverAddr: serverAddr,
		running:    true,
	}
}

func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "ailink# ",
		HistoryFile:     os.ExpandEnv("$HOME/.ailinkcli_history"),
		AutoComplete:    c.buildCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer c.rl.Close()

	c.printBanner()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			} else if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := c.processCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

func (c *CLI) Stop() {
	c.running = false
}

func (c *CLI) printBanner() {
	fmt.Println("=====================================")
	fmt.Println("    ailink Interactive CLI")
	fmt.Println("=====================================")
	fmt.Printf("Connected to: %s\n", c.serverAddr)
	fmt.Println("Type 'help' for available commands")
	fmt.Println("Type 'exit' or 'quit' to exit")
	fmt.Println()
}

func (c *CLI) buildCompleter() *readline.PrefixCompleter {
	strategies := func(string) []string {
		reply, err := c.client.Strategy()
		if err != nil {
			return nil
		}
		return reply.Available
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("show",
			readline.PcItem("status"),
			readline.PcItem("sessions"),
			readline.PcItem("episodes"),
			readline.PcItem("episode"),
			readline.PcItem("strategy"),
			readline.PcItem("events"),
			readline.PcItem("logging"),
		),
		readline.PcItem("watch"),
		readline.PcItem("set",
			readline.PcItem("strategy", readline.PcItemDynamic(strategies)),
			readline.PcItem("logging"),
		),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

// processCommand dispatches one input line. A trailing "| json" switches the
// output from tables to raw JSON.
func (c *CLI) processCommand(line string) error {
	format := FormatCLI
	if idx := strings.Index(line, "|"); idx >= 0 {
		mod := strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
		switch mod {
		case "json":
			format = FormatJSON
		case "":
		default:
			return fmt.Errorf("unknown output modifier: %s", mod)
		}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "exit", "quit":
		c.running = false
		return nil
	case "help", "?":
		c.printHelp()
		return nil
	case "show":
		if len(fields) < 2 {
			return fmt.Errorf("usage: show status|sessions|episodes|episode <id>|strategy|events|logging")
		}
		return c.handleShow(fields[1:], format)
	case "watch":
		return c.handleWatch(fields[1:])
	case "set":
		switch {
		case len(fields) == 3 && fields[1] == "strategy":
			return c.handleSetStrategy(fields[2], format)
		case len(fields) >= 3 && fields[1] == "logging":
			return c.handleSetLogging(fields[2:], format)
		default:
			return fmt.Errorf("usage: set strategy <name> | set logging <component> <level|clear>")
		}
	default:
		return fmt.Errorf("unknown command: %s (try 'help')", fields[0])
	}
}

func (c *CLI) handleShow(args []string, format OutputFormat) error {
	switch args[0] {
	case "status":
		reply, err := c.client.Status()
		if err != nil {
			return err
		}
		return c.print(formatStatus(reply), reply, format)
	case "sessions":
		reply, err := c.client.Sessions()
		if err != nil {
			return err
		}
		return c.print(formatSessions(reply), reply, format)
	case "episodes":
		limit := 0
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed < 1 {
				return fmt.Errorf("usage: show episodes [limit]")
			}
			limit = parsed
		}
		reply, err := c.client.Episodes(limit)
		if err != nil {
			return err
		}
		return c.print(formatEpisodes(reply), reply, format)
	case "episode":
		if len(args) != 2 {
			return fmt.Errorf("usage: show episode <id>")
		}
		reply, err := c.client.EpisodeSteps(args[1])
		if err != nil {
			return err
		}
		return c.print(formatSteps(reply), reply, format)
	case "strategy":
		reply, err := c.client.Strategy()
		if err != nil {
			return err
		}
		return c.print(formatStrategy(reply), reply, format)
	case "events":
		reply, err := c.client.Status()
		if err != nil {
			return err
		}
		return c.print(formatEvents(reply), reply.Events, format)
	case "logging":
		reply, err := c.client.Logging()
		if err != nil {
			return err
		}
		return c.print(formatLogging(reply), reply, format)
	default:
		return fmt.Errorf("unknown show target: %s", args[0])
	}
}

// handleWatch polls and reprints the status until the user presses Enter.
func (c *CLI) handleWatch(args []string) error {
	interval := 2 * time.Second
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs < 1 {
			return fmt.Errorf("usage: watch [seconds]")
		}
		interval = time.Duration(secs) * time.Second
	}

	fmt.Printf("Watching status every %s, press Enter to stop\n\n", interval)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			reply, err := c.client.Status()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else {
				fmt.Printf("--- %s ---\n%s\n", time.Now().Format("15:04:05"), formatStatus(reply))
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	c.rl.Readline()
	close(stop)
	return nil
}

func (c *CLI) handleSetStrategy(name string, format OutputFormat) error {
	reply, err := c.client.SetStrategy(name)
	if err != nil {
		return err
	}
	return c.print(formatStrategy(reply), reply, format)
}

func (c *CLI) handleSetLogging(args []string, format OutputFormat) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set logging <component> <level|clear>")
	}
	level := args[1]
	if level == "clear" {
		level = ""
	}
	reply, err := c.client.SetLogging(args[0], level)
	if err != nil {
		return err
	}
	return c.print(formatLogging(reply), reply, format)
}

func (c *CLI) print(table string, data any, format OutputFormat) error {
	if format == FormatJSON {
		out, err := formatJSON(data)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	fmt.Print(table)
	return nil
}

func (c *CLI) printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  show status            Daemon, training and event bus status")
	fmt.Println("  show sessions          Active game sessions")
	fmt.Println("  show episodes [limit]  Recorded episodes, newest first")
	fmt.Println("  show episode <id>      Recorded steps for one episode")
	fmt.Println("  show strategy          Active and available brain strategies")
	fmt.Println("  show events            Event bus counters and topics")
	fmt.Println("  show logging           Log levels and per-component overrides")
	fmt.Println("  set strategy <name>    Switch strategy for new sessions")
	fmt.Println("  set logging <c> <lvl>  Override a component log level ('clear' removes)")
	fmt.Println("  watch [seconds]        Poll status until Enter is pressed")
	fmt.Println("  exit | quit            Leave the CLI")
	fmt.Println()
	fmt.Println("Append '| json' to any show command for raw JSON output.")
}
