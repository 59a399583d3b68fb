// Command get-token runs the OAuth2 consent flow once and prints the refresh
// token for google.refresh_token.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"golang.org/x/oauth2"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/gcp"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		log.Fatal("Please set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}

	oc := gcp.OAuthConfig(cfg.Google)
	authURL := oc.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Go to the following link in your browser: %v\n", authURL)

	var authCode string
	fmt.Print("\nEnter the authorization code: ")
	if _, err := fmt.Scan(&authCode); err != nil {
		log.Fatalf("Unable to read authorization code: %v", err)
	}

	tok, err := oc.Exchange(context.Background(), authCode)
	if err != nil {
		log.Fatalf("Unable to retrieve token from web: %v", err)
	}

	fmt.Printf("\nRefresh Token: %s\n", tok.RefreshToken)
	fmt.Printf("Expiry: %v\n", tok.Expiry)
	fmt.Println("\nAdd the refresh token to your environment variables:")
	fmt.Printf("export GOOGLE_REFRESH_TOKEN=\"%s\"\n", tok.RefreshToken)
}
