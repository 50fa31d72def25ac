package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	hasDocument() bool
	Login(ctx context.Context) error
	Open(ctx context.Context, kind, key string) error
	SetField(ctx context.Context, name, value string) error
	SetCell(ctx context.Context, row int, name, value string) error
	AddRow(ctx context.Context) error
	DeleteRow(ctx context.Context, row int) error
	Show(ctx context.Context) error
	Flush(ctx context.Context) error
}

// runREPL starts a read–eval–print loop for the editing shell.
//
// It reads a line, parses the first token as the command, and dispatches to
// methods on 'a'. Unknown commands are reported back to the user. The loop
// exits on scanner EOF or when the user types "exit" or "quit".
//
// Commands
//
//	login                      - authenticate against the server
//	open <kind> <key>          - open a document (timesheet | purchase_order)
//	set <field> <value...>     - set a header field
//	cell <row> <col> <value..> - set one cell of a row
//	addrow                     - append a blank row
//	delrow <row>               - delete a row (the last row is replaced by a blank one)
//	show                       - render the document
//	flush                      - save pending edits now
//	help, exit, quit
//
// Any errors returned by command handlers are reported inline; the loop
// itself stays alive so a failed save never ends the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		_, _ = printlnFn(statusFn() + " >")
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit":
			return
		case "help":
			printHelp()
			continue
		case "login":
			reportErr(a.Login(ctx))
			continue
		}

		if !a.isLoggedIn() {
			_, _ = printlnFn("Please login first (type 'login')")
			continue
		}

		if cmd == "open" {
			if len(args) < 2 {
				_, _ = printlnFn("usage: open <kind> <key>")
				continue
			}
			reportErr(a.Open(ctx, args[0], args[1]))
			continue
		}

		if !a.hasDocument() {
			_, _ = printlnFn("Open a document first (type 'open <kind> <key>')")
			continue
		}

		switch cmd {
		case "set":
			if len(args) < 2 {
				_, _ = printlnFn("usage: set <field> <value>")
				continue
			}
			reportErr(a.SetField(ctx, args[0], strings.Join(args[1:], " ")))
		case "cell":
			if len(args) < 3 {
				_, _ = printlnFn("usage: cell <row> <col> <value>")
				continue
			}
			row, err := strconv.Atoi(args[0])
			if err != nil {
				_, _ = printlnFn("row must be a number")
				continue
			}
			reportErr(a.SetCell(ctx, row, args[1], strings.Join(args[2:], " ")))
		case "addrow":
			reportErr(a.AddRow(ctx))
		case "delrow":
			if len(args) < 1 {
				_, _ = printlnFn("usage: delrow <row>")
				continue
			}
			row, err := strconv.Atoi(args[0])
			if err != nil {
				_, _ = printlnFn("row must be a number")
				continue
			}
			reportErr(a.DeleteRow(ctx, row))
		case "show":
			reportErr(a.Show(ctx))
		case "flush":
			reportErr(a.Flush(ctx))
		default:
			_, _ = printlnFn("Unknown command: " + cmd + " (type 'help')")
		}
	}
}

func reportErr(err error) {
	if err != nil {
		_, _ = printlnFn("error: " + err.Error())
	}
}

func printHelp() {
	_, _ = printlnFn(`Commands:
  login                       authenticate against the server
  open <kind> <key>           open a document (timesheet | purchase_order)
  set <field> <value>         set a header field
  cell <row> <col> <value>    set one cell of a row
  addrow                      append a blank row
  delrow <row>                delete a row
  show                        render the document
  flush                       save pending edits now
  exit | quit                 leave`)
}
