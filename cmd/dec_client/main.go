package main

import (
	"context"
	"os"

	"otp/pkg/cli"
	"otp/pkg/session"
)

func main() {
	os.Exit(cli.Execute(context.Background(), cli.NewClientCommand(session.DecClient), os.Args[1:]))
}
