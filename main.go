package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/anicoll/anova-integration/cmd"
)

func main() {
	deviceFlag := &cli.StringFlag{
		Name:    "device",
		Usage:   "cooker id, every oven when empty",
		EnvVars: []string{"ANOVA_DEVICE"},
	}

	app := &cli.App{
		Name:   "anova-controller",
		Usage:  "mirror Anova Precision Ovens and control them from Home Assistant",
		Action: cmd.ServeCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
			&cli.StringFlag{
				Name:    "recipes",
				Usage:   "path to a YAML recipes file",
				EnvVars: []string{"RECIPES_FILE"},
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "0.0.0.0:8000",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the relay session, the MQTT bridge, the scheduler and the HTTP API",
				Action: cmd.ServeCommand,
			},
			{
				Name:   "devices",
				Usage:  "list the ovens on the account",
				Flags:  []cli.Flag{deviceFlag},
				Action: cmd.DevicesCommand,
			},
			{
				Name:   "toast",
				Usage:  "start the toast program",
				Flags:  []cli.Flag{deviceFlag},
				Action: cmd.ToastCommand,
			},
			{
				Name:   "stop",
				Usage:  "stop the active cook",
				Flags:  []cli.Flag{deviceFlag},
				Action: cmd.StopCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
