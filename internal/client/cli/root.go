package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.account == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.account)
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to GeoCapsule CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("gcap %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: add, list, name, discover, fav, rate, delete, sync, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "add":
			a.add(ctx)
		case "list":
			a.list(ctx)
		case "name":
			a.rename(ctx, args)
		case "discover":
			a.discover(ctx)
		case "fav":
			a.favorite(ctx, args)
		case "rate":
			a.rate(ctx, args)
		case "delete":
			a.delete(ctx, args)
		case "sync":
			a.sync(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
