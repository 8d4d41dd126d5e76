// Command ledgerctl runs maintenance tasks against the booking database.
package main

import (
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/config"
	"github.com/you/padel-booking/pkg/db"
)

var Version = "dev"

type ctlConfig struct {
	config.Postgres
	HoldTTL time.Duration `envconfig:"HOLD_TTL" default:"30m"`
}

func main() {
	var cfg ctlConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	env := &cliEnv{
		open:    func() (*gorm.DB, error) { return db.Open(cfg.DSN) },
		close:   db.Close,
		clock:   clock.Real(),
		holdTTL: cfg.HoldTTL,
	}
	if err := rootCmd(env).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
