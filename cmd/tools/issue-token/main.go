package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/compliance-links-api/internal/models"
	"github.com/noah-isme/compliance-links-api/internal/service"
	"github.com/noah-isme/compliance-links-api/pkg/config"
)

func main() {
	userID := flag.String("user", "", "operator id")
	role := flag.String("role", string(models.RoleManager), "operator role")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("usage: go run ./cmd/tools/issue-token -user <id> [-role MANAGER] [-ttl 1h]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	auth := service.NewAuthService(nil, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	signed, err := auth.IssueToken(models.Operator{ID: *userID, Role: models.UserRole(strings.ToUpper(*role))}, *ttl)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(signed)
}
