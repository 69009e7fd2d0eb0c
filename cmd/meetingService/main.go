package main

import (
	"bitbucket.org/airenas/meetgo/internal/app/meeting"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	meeting.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
                    __
   ____ ___  ___  _/ /_____ _____
  / __ ` + "`" + `__ \/ _ \/ __/ __ ` + "`" + `/ __ \
 / / / / / /  __/ /_/ /_/ / /_/ /
/_/ /_/ /_/\___/\__/\__, /\____/  v: %s
                   /____/
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("bitbucket.org/airenas/meetgo"))
}
