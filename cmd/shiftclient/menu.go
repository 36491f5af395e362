package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const menuText = `Select one of the options below:
1. Request time from the server.
2. Request date from the server.
3. Request temperature from the server.
4. Exit
`

var menuCommands = map[int]string{
	1: "TIME",
	2: "DATE",
	3: "TEMP",
}

const menuExit = 4

// runMenu prompts on out and sends the chosen commands until the user picks
// Exit or in reaches EOF.
func runMenu(in io.Reader, out io.Writer, c requester, logger *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, menuText)
		if !scanner.Scan() {
			return scanner.Err()
		}
		option, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && option == menuExit {
			return nil
		}
		command, ok := menuCommands[option]
		if err != nil || !ok {
			logger.Error("The option is not a valid one, please try again.")
			continue
		}
		if err := request(c, command, logger); err != nil {
			return err
		}
	}
}
