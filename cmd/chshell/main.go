package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mickamy/chnative/chclient"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("chshell", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "chshell — interactive native-protocol SQL shell\n\nUsage:\n  chshell [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	addr := fs.String("addr", "localhost:9000", "server address")
	user := fs.String("user", "default", "username")
	password := fs.String("password", "", "password")
	database := fs.String("database", "", "default database")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("chshell %s\n", version)
		return
	}

	opts := chclient.Options{
		Username:        *user,
		Password:        *password,
		DefaultDatabase: *database,
		ClientName:      "chshell",
	}

	p := tea.NewProgram(New(*addr, opts))
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
