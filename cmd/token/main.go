// Command token mints development JWTs so the candidate and recruiter
// APIs can be exercised without the identity platform.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/hirewise/assessment-backend/internal/config"
	"github.com/hirewise/assessment-backend/internal/service"
)

func main() {
	var (
		userID    int64
		email     string
		tokenType string
	)
	flag.Int64Var(&userID, "user", 1, "User ID to embed in the token")
	flag.StringVar(&email, "email", "dev@example.com", "Email to embed in the token")
	flag.StringVar(&tokenType, "type", "candidate", "Token type: candidate or recruiter")
	flag.Parse()

	var tt service.TokenType
	switch tokenType {
	case "candidate":
		tt = service.TokenTypeCandidate
	case "recruiter":
		tt = service.TokenTypeRecruiter
	default:
		log.Fatalf("unknown token type %q (want candidate or recruiter)", tokenType)
	}

	cfg := config.Load()
	authService := service.NewAuthService(cfg)

	token, err := authService.GenerateToken(userID, email, tt)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	fmt.Println(token)
}
