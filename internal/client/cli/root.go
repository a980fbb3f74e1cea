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
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to UploadVault CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	if err := a.Login(ctx); err != nil {
		log.Printf("login: %v", err)
	}

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	for {
		fmt.Printf("uvault %s> ", a.getStatus())
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
			a.printHelp()
		case "login":
			if err := a.Login(ctx); err != nil {
				log.Printf("login: %v", err)
			}
		case "register":
			if err := a.Register(ctx); err != nil {
				log.Printf("register: %v", err)
			}
		case "upload":
			if !a.isLoggedIn() {
				fmt.Println("Please log in first")
				continue
			}
			a.Upload(ctx, args, os.Stdout)
		case "list":
			if !a.isLoggedIn() {
				fmt.Println("Please log in first")
				continue
			}
			if err := a.List(ctx, os.Stdout); err != nil {
				log.Printf("list: %v", err)
			}
		case "status":
			a.RenderNotifications(os.Stdout, a.presenter.ToggleExpanded())
		case "dismiss":
			if len(args) == 0 {
				a.presenter.Dismiss()
				continue
			}
			for _, id := range args {
				a.presenter.DismissRecord(id)
			}
		case "clear":
			a.presenter.ClearCompleted()
		case "quit", "exit":
			return
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func (a *App) printHelp() {
	fmt.Println(`Commands:
  login              log in to the server
  register           create a new account
  upload <path>...   upload one or more files
  list               list uploaded files
  status             show upload notifications (toggles detail)
  dismiss [id...]    hide notifications, or remove specific entries
  clear              remove completed uploads
  quit               exit`)
}
