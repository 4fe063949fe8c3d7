package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"intradaybot/cmd/cycle"
	"intradaybot/cmd/daemon"
	"intradaybot/cmd/flatten"
	"intradaybot/cmd/watchlist"
	"intradaybot/src/database"
	"intradaybot/src/model"
	"intradaybot/src/repository"
	"intradaybot/src/settings"
)

var Version string

func SetupLogger() {
	config := database.GetConfig()

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(config.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found, using environment variables")
	}
	SetupLogger()

	app := cli.NewApp()
	app.Name = "intradaybot"
	app.Usage = "Intraday signal and position lifecycle engine"
	app.Version = Version

	app.Commands = []cli.Command{
		runCMD,
		cycleCMD,
		daemonCMD,
		flattenCMD,
		watchlistCMD,
		positionsCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	runCMD = cli.Command{
		Name:        "run",
		Usage:       "run according to RUN_MODE",
		Action:      runAction,
		Description: `Runs one 5m cycle when RUN_MODE=once, the scheduler when RUN_MODE=daemon`,
	}
	cycleCMD = cli.Command{
		Name:   "cycle",
		Usage:  "run a single cycle",
		Action: cycleAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "timeframe, t", Value: model.Timeframe5m, Usage: "5m or 15m"},
		},
		Description: `Run one cycle and exit`,
	}
	daemonCMD = cli.Command{
		Name:        "daemon",
		Usage:       "run the scheduler",
		Action:      daemonAction,
		Description: `Schedule 5m and 15m cycles plus the flatten guard`,
	}
	flattenCMD = cli.Command{
		Name:        "flatten",
		Usage:       "close every open position",
		Action:      flattenAction,
		Description: `Restore the book and close everything at the latest 5m close`,
	}
	watchlistCMD = cli.Command{
		Name:        "watchlist",
		Usage:       "import a watchlist file",
		Action:      watchlistAction,
		ArgsUsage:   "[path]",
		Description: `Load a watchlist (WATCHLIST_FILE or WATCHLIST_GLOB when no path is given) and record the run`,
	}
	positionsCMD = cli.Command{
		Name:        "positions",
		Usage:       "print persisted open positions",
		Action:      positionsAction,
		Description: `Print the position mirror as JSON`,
	}
)

func runAction(c *cli.Context) error {
	s, err := settings.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid settings")
	}
	logrus.WithField("run_mode", s.RunMode).Info("Starting run CMD")
	if s.RunMode == settings.RunModeDaemon {
		return daemonAction(c)
	}
	return (&cycle.Cycle{Timeframe: model.Timeframe5m}).Start()
}

func cycleAction(c *cli.Context) error {
	logrus.WithField("cmd", "cycle").Info("Starting cycle CMD")
	return (&cycle.Cycle{Timeframe: c.String("timeframe")}).Start()
}

func daemonAction(_ *cli.Context) error {
	logrus.WithField("cmd", "daemon").Info("Starting daemon CMD")
	return (&daemon.Daemon{}).Start()
}

func flattenAction(_ *cli.Context) error {
	logrus.WithField("cmd", "flatten").Info("Starting flatten CMD")
	return (&flatten.Flatten{}).Start()
}

func watchlistAction(c *cli.Context) error {
	logrus.WithField("cmd", "watchlist").Info("Starting watchlist CMD")
	return (&watchlist.Watchlist{Path: c.Args().First()}).Start()
}

func positionsAction(_ *cli.Context) error {
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	rows, err := repository.NewPositionRepository().List(context.Background())
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
