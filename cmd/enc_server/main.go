package main

import (
	"context"
	"os"

	"otp/pkg/cli"
	"otp/pkg/session"
)

func main() {
	os.Exit(cli.Execute(context.Background(), cli.NewServerCommand(session.EncServer), os.Args[1:]))
}
