package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/mailproof/internal/client/cli"
	"github.com/dmitrijs2005/mailproof/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, args := config.LoadConfig(os.Args[1:])
	app := cli.NewApp(cfg)

	os.Exit(app.Run(ctx, args))

}
