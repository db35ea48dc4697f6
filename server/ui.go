package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/stevedomin/termtable"

	"ghostline/shared"
)

// ANSI color codes
const (
	colorRed         = "31"
	colorGreen       = "32"
	colorYellow      = "33"
	colorBlue        = "34"
	colorCyan        = "36"
	colorDarkGray    = "90"
	colorBrightGreen = "92"
)

func colorize(s string, color string) string {
	return fmt.Sprintf("\033[%sm%s\033[0m", color, s)
}

func mainPrompt() string {
	return colorize("ghostline >> ", colorBrightGreen)
}

func sessionPrompt(sess *Session) string {
	return colorize(fmt.Sprintf("session[%d:%s] >> ", sess.ID, sess.Codename), colorCyan)
}

func printBanner() {
	banner := `
   ██████  ██   ██  ██████  ███████ ████████ ██      ██ ███    ██ ███████
  ██       ██   ██ ██    ██ ██         ██    ██      ██ ████   ██ ██
  ██   ███ ███████ ██    ██ ███████    ██    ██      ██ ██ ██  ██ █████
  ██    ██ ██   ██ ██    ██      ██    ██    ██      ██ ██  ██ ██ ██
   ██████  ██   ██  ██████  ███████    ██    ███████ ██ ██   ████ ███████
`
	fmt.Printf("\033[32m%s\033[0m\n", banner)
	fmt.Printf("\033[32m  Ghostline - Remote Session Relay\033[0m\n")
	fmt.Printf("\033[2m\033[32m  Type 'help' to view available commands\033[0m\n\n")
}

func printMainHelp() {
	fmt.Println("\nCommands:")
	fmt.Printf("  %-18s %s\n", colorize("sessions", colorGreen), "List active sessions")
	fmt.Printf("  %-18s %s\n", colorize("interact <id>", colorGreen), "Drive a session")
	fmt.Printf("  %-18s %s\n", colorize("transfers", colorGreen), "List retrieved artifacts")
	fmt.Printf("  %-18s %s\n", colorize("history", colorGreen), "Show recent commands")
	fmt.Printf("  %-18s %s\n", colorize("exit", colorGreen), "Quit the console")
	fmt.Println()
}

func printSessionHelp() {
	fmt.Println("\nSession commands:")
	fmt.Printf("  %-18s %s\n", colorize("run <module>", colorGreen), "Run a named module")
	fmt.Printf("  %-18s %s\n", colorize("modules", colorGreen), "List available modules")
	fmt.Printf("  %-18s %s\n", colorize("download <path>", colorGreen), "Retrieve a remote file")
	fmt.Printf("  %-18s %s\n", colorize("background", colorGreen), "Detach without terminating")
	fmt.Printf("  %-18s %s\n", colorize("kill", colorGreen), "Terminate the session")
	fmt.Println("  Anything else is sent to the remote shell verbatim.")
	fmt.Println()
}

func printModulesList(d *Dispatcher) {
	fmt.Println("\nModules:")
	for _, m := range d.Modules() {
		fmt.Printf("  %-12s %s\n", colorize(m.Name(), colorGreen), m.Description())
	}
	fmt.Println()
}

func printSessionsTable(sessions []*Session) {
	if len(sessions) == 0 {
		fmt.Println(colorize("No active sessions", colorYellow))
		return
	}

	t := termtable.NewTable(nil, &termtable.TableOptions{
		Padding:      2,
		UseSeparator: false,
	})
	t.SetHeader([]string{
		colorize("ID", colorBlue),
		colorize("Codename", colorBlue),
		colorize("Remote Address", colorBlue),
		colorize("Opened", colorBlue),
		colorize("Age", colorBlue),
	})
	for _, s := range sessions {
		t.AddRow([]string{
			fmt.Sprintf("%d", s.ID),
			colorize(s.Codename, colorGreen),
			s.RemoteAddr,
			s.Created.Format("2006-01-02 15:04:05"),
			shared.FormatDuration(time.Since(s.Created)),
		})
	}

	fmt.Printf("\n%s\n\n", colorize("Active Sessions", colorCyan))
	fmt.Println(t.Render())
	fmt.Printf("\n%s %d\n\n", colorize("Total:", colorBlue), len(sessions))
}

func printTransfersTable(transfers []DBTransfer) {
	if len(transfers) == 0 {
		fmt.Println(colorize("No transfers recorded", colorYellow))
		return
	}

	t := termtable.NewTable(nil, &termtable.TableOptions{
		Padding:      2,
		UseSeparator: false,
	})
	t.SetHeader([]string{
		colorize("Session", colorBlue),
		colorize("Remote Path", colorBlue),
		colorize("Artifact", colorBlue),
		colorize("Size", colorBlue),
		colorize("SHA256", colorBlue),
		colorize("When", colorBlue),
	})
	for _, tr := range transfers {
		sha := tr.SHA256
		if len(sha) > 8 {
			sha = sha[:8]
		}
		t.AddRow([]string{
			fmt.Sprintf("%d", tr.SessionID),
			tr.RemotePath,
			tr.LocalPath,
			fmt.Sprintf("%d B", tr.Size),
			colorize(sha, colorDarkGray),
			shared.FormatDuration(time.Since(tr.CreatedAt)) + " ago",
		})
	}

	fmt.Printf("\n%s\n\n", colorize("Retrieved Artifacts", colorCyan))
	fmt.Println(t.Render())
	fmt.Println()
}

func printFindings(f *Findings) {
	if f == nil {
		return
	}
	fmt.Printf("\n%s\n", colorize(strings.ToUpper(f.Module), colorCyan))
	fmt.Println(strings.Repeat("═", 60))

	for _, sec := range f.Sections {
		fmt.Printf("\n%s\n", colorize(sec.Title, colorYellow))
		if len(sec.Entries) == 0 {
			fmt.Printf("  %s\n", colorize("(unavailable)", colorDarkGray))
			continue
		}
		for _, e := range sec.Entries {
			tag := ""
			if e.Tag != "" {
				tag = colorize("["+e.Tag+"] ", colorRed)
			}
			switch {
			case e.Label != "":
				fmt.Printf("  %s%-15s: %s\n", tag, e.Label, e.Value)
			default:
				fmt.Printf("  %s%s\n", tag, e.Value)
			}
		}
	}
	fmt.Println()
}

func printTransferResult(res *TransferResult) {
	fmt.Printf("%s Saved to: %s\n", colorize("[+]", colorGreen), res.LocalPath)
	if res.ReportedSize >= 0 && res.ReportedSize != int64(res.Size) {
		fmt.Printf("%s Size: %d bytes (remote reported %d)\n", colorize("[+]", colorGreen), res.Size, res.ReportedSize)
	} else {
		fmt.Printf("%s Size: %d bytes\n", colorize("[+]", colorGreen), res.Size)
	}
	fmt.Printf("%s SHA256: %s\n", colorize("[+]", colorGreen), res.SHA256)

	if len(res.Preview) > 0 {
		fmt.Printf("\n%s\n", colorize(fmt.Sprintf("File preview (first %d lines):", previewLines), colorCyan))
		fmt.Println(strings.Repeat("─", 60))
		for _, line := range res.Preview {
			fmt.Println(line)
		}
		if res.PreviewTruncated {
			fmt.Println("... (truncated)")
		}
		fmt.Println(strings.Repeat("─", 60))
	}
}
