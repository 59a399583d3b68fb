package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	once := flag.Bool("once", false, "run both workflows once and exit")
	flag.Parse()

	if err := app.Run(app.Options{ConfigPath: *configPath, Once: *once}); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
