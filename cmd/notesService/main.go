package main

import (
	"bitbucket.org/airenas/meetgo/internal/app/notes"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	notes.Execute()
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
/_/ /_/ /_/\___/\__/\__, /\____/
                   /____/
               __
   ____  ____  / /____  _____
  / __ \/ __ \/ __/ _ \/ ___/  notes v: %s
 / / / / /_/ / /_/  __(__  )
/_/ /_/\____/\__/\___/____/
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("bitbucket.org/airenas/meetgo"))
}
