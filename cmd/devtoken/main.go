// Command devtoken prints a bearer token for local testing.
//
//	devtoken -user u-1 -role employee
//	curl -H "Authorization: Bearer $(devtoken -user u-1)" localhost:8080/api/me
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	user := flag.String("user", "", "user id (token subject)")
	role := flag.String("role", string(leave.RoleEmployee), "employee or admin")
	ttl := flag.Duration("ttl", cfg.JWTTTL, "token lifetime")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}
	if !leave.Role(*role).Valid() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, *ttl)
	raw, err := tokens.Issue(leave.Caller{ID: *user, Role: leave.Role(*role)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(raw)
}
