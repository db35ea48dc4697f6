package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	addrFlag string
	dbFlag   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "breachapi",
		Short: "Breach-lookup password range API",
		RunE:  runAPI,
	}
	rootCmd.Flags().StringVar(&addrFlag, "addr", ":5000", "listen address")
	rootCmd.Flags().StringVar(&dbFlag, "db", "data/passwords.db", "sqlite database path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAPI(cmd *cobra.Command, args []string) error {
	logrus.SetLevel(logrus.InfoLevel)

	store, err := NewStore(dbFlag)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()
	logrus.Info("Database initialized")

	api := NewAPI(store)
	logrus.Infof("Breach API listening on %s", addrFlag)
	return http.ListenAndServe(addrFlag, api.Routes())
}
