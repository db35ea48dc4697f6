package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// TerminalFormatter is a logrus formatter matching the console's green
// terminal theme.
type TerminalFormatter struct{}

func (f *TerminalFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	// ANSI color codes
	const (
		green       = "\033[32m"
		brightGreen = "\033[92m"
		darkGreen   = "\033[38;5;22m"
		reset       = "\033[0m"
		bold        = "\033[1m"
		dim         = "\033[2m"
	)

	timestamp := entry.Time.Format("2006-01-02 15:04:05")

	var levelColor string
	var levelSymbol string
	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = brightGreen
		levelSymbol = "[!]"
	case logrus.WarnLevel:
		levelColor = green
		levelSymbol = "[~]"
	case logrus.InfoLevel:
		levelColor = green
		levelSymbol = "[+]"
	default:
		levelColor = darkGreen
		levelSymbol = "[*]"
	}

	output := fmt.Sprintf("%s[%s]%s %s%s%s %s%s%s\n",
		dim+darkGreen, timestamp, reset,
		bold+levelColor, levelSymbol, reset,
		green, entry.Message, reset,
	)
	return []byte(output), nil
}

var (
	hostFlag      string
	portFlag      int
	dbFlag        string
	artifactsFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ghostline",
		Short: "Line-oriented remote session relay",
		RunE:  runServer,
	}
	rootCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "listen host")
	rootCmd.Flags().IntVarP(&portFlag, "port", "p", 4444, "listen port")
	rootCmd.Flags().StringVar(&dbFlag, "db", "ghostline.db", "sqlite database path")
	rootCmd.Flags().StringVar(&artifactsFlag, "artifacts", ".", "directory for downloaded artifacts")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logrus.SetFormatter(&TerminalFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	printBanner()

	db, err := NewDatabase(dbFlag)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()
	logrus.Info("Database initialized")

	registry := NewRegistry()
	if last, err := db.LastSessionID(); err == nil {
		registry.Seed(last)
	} else {
		logrus.Warnf("Could not read last session id, identifiers may repeat: %v", err)
	}

	srv := NewListenerServer(fmt.Sprintf("%s:%d", hostFlag, portFlag), registry, db)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start listener: %w", err)
	}
	defer srv.Stop()
	logrus.Infof("Listening on %s", srv.Addr())

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logrus.Warn("stdin is not a TTY; line editing and history are disabled")
	}

	xfer := NewTransferService(db, artifactsFlag)
	dispatcher := NewDispatcher(db, xfer)
	console := NewConsole(registry, dispatcher, xfer, db)
	console.Run()

	return nil
}
