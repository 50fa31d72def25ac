package main

import (
	"context"
	"log"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/cli"
	"github.com/silverkiwi/jobs-manager-sub002/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
