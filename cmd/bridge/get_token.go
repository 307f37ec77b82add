package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

// putioOAuthEndpoint is the cloud service's device-authorization endpoint.
// The OAuth client ID used against it is read from PUTIOARR_OAUTH_CLIENT_ID,
// which get-token requires.
var putioOAuthEndpoint = oauth2.Endpoint{
	AuthURL:       "https://api.put.io/v2/oauth2/authenticate",
	TokenURL:      "https://api.put.io/v2/oauth2/token",
	DeviceAuthURL: "https://api.put.io/v2/oauth2/device/code",
}

func getTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-token",
		Short: "Acquire a put.io API token via the device-code flow and save it to the config file",
		RunE:  runGetToken,
	}
}

func runGetToken(cmd *cobra.Command, args []string) error {
	clientID := os.Getenv("PUTIOARR_OAUTH_CLIENT_ID")
	if clientID == "" {
		return fmt.Errorf("PUTIOARR_OAUTH_CLIENT_ID must be set to run get-token")
	}

	conf := &oauth2.Config{
		ClientID: clientID,
		Endpoint: putioOAuthEndpoint,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	resp, err := conf.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("starting device authorization: %w", err)
	}

	fmt.Printf("Visit %s and enter code %s to authorize this bridge.\n", resp.VerificationURI, resp.UserCode)

	token, err := conf.DeviceAccessToken(ctx, resp)
	if err != nil {
		return fmt.Errorf("waiting for authorization: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	v.Set("putio.api_key", token.AccessToken)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("writing token back to %s: %w", configPath, err)
	}

	fmt.Printf("Saved API token to %s\n", configPath)
	return nil
}
