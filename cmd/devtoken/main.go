// Command devtoken prints a bearer token for local testing, signed with
// JWT_SECRET_KEY.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/blueprintx-backend/internal/platform/envutil"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
	"github.com/yungbote/blueprintx-backend/internal/services"
)

func main() {
	var (
		user string
		ttl  time.Duration
	)
	flag.StringVar(&user, "user", "", "user id (default: random)")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	userID := uuid.New()
	if user != "" {
		id, err := uuid.Parse(user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad -user: %v\n", err)
			os.Exit(2)
		}
		userID = id
	}

	auth, err := services.NewAuthService(logger.Nop(), nil, envutil.String("JWT_SECRET_KEY", ""), ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init auth: %v\n", err)
		os.Exit(1)
	}
	tok, err := auth.IssueAccessToken(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "user_id=%s\n", userID)
	fmt.Println(tok)
}
