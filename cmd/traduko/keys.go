package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/allaspectsdev/traduko/internal/vault"
)

func cmdKeys(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: traduko keys <list|set|delete> [--session] [provider]")
		os.Exit(1)
	}

	v := vault.New()

	switch args[0] {
	case "list":
		creds, err := v.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error listing credentials: %v\n", err)
			os.Exit(1)
		}
		if len(creds) == 0 {
			fmt.Println("No credentials stored")
			return
		}
		for _, c := range creds {
			fmt.Printf("  %s %s (%s): ****\n", c.Provider, c.Kind, c.Source)
		}

	case "set":
		session, provider := sessionArg(args[1:])
		if provider == "" {
			fmt.Println("Usage: traduko keys set [--session] <provider>")
			os.Exit(1)
		}
		kind := "API key"
		if session {
			kind = "session token"
		}
		fmt.Printf("Enter %s for %s: ", kind, provider)
		key, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading credential: %v\n", err)
			os.Exit(1)
		}
		if session {
			err = v.SetToken(provider, string(key))
		} else {
			err = v.Set(provider, string(key))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error storing credential: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s for %s stored successfully\n", kind, provider)

	case "delete":
		session, provider := sessionArg(args[1:])
		if provider == "" {
			fmt.Println("Usage: traduko keys delete [--session] <provider>")
			os.Exit(1)
		}
		var err error
		if session {
			err = v.DeleteToken(provider)
		} else {
			err = v.Delete(provider)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error deleting credential: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Credential for %s deleted\n", provider)

	default:
		fmt.Fprintf(os.Stderr, "unknown keys command: %s\n", args[0])
		os.Exit(1)
	}
}

// sessionArg splits a keys subcommand's arguments into the --session flag
// and the provider name, lowercased.
func sessionArg(args []string) (session bool, provider string) {
	for _, a := range args {
		if a == "--session" {
			session = true
			continue
		}
		if provider == "" {
			provider = strings.ToLower(a)
		}
	}
	return session, provider
}
