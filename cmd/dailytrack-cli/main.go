package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/client"
	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/pretty"
)

const defaultServerAddress = "http://127.0.0.1:3000"

func main() {
	_ = godotenv.Load()
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type cli struct {
	settings *viper.Viper
	stdout   io.Writer
	stderr   io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	settings := config.NewViper()
	settings.SetDefault("client.server_address", defaultServerAddress)
	settings.SetDefault("client.token", "")
	settings.SetDefault("client.output_file", "")

	app := &cli{settings: settings, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "dailytrack-cli",
		Short:         "Command line client for the daily track API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.String("server-address", settings.GetString("client.server_address"), "API server address")
	flags.String("output-file", "", "Write the JSON response to this file instead of stdout")
	flags.String("token", "", "Bearer token sent with every request")
	app.bind(rootCmd, "client.server_address", "server-address")
	app.bind(rootCmd, "client.output_file", "output-file")
	app.bind(rootCmd, "client.token", "token")

	rootCmd.AddCommand(
		app.createTopicCommand(),
		app.getTopicsCommand(),
		app.getTopicCommand(),
		app.updateTopicCommand(),
		app.deleteTopicCommand(),
		app.createDailyTrackCommand(),
		app.getDailyTracksCommand(),
		app.getDailyTrackCommand(),
		app.updateDailyTrackCommand(),
		app.deleteDailyTrackCommand(),
		app.issueTokenCommand(),
	)
	return rootCmd
}

func (a *cli) bind(cmd *cobra.Command, key, flag string) {
	if err := a.settings.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func (a *cli) client() (*client.Client, error) {
	return client.New(client.Config{
		ServerAddress: a.settings.GetString("client.server_address"),
		Token:         a.settings.GetString("client.token"),
	})
}

// run executes one API call and renders its JSON response.
func (a *cli) run(call func(ctx context.Context, apiClient *client.Client) ([]byte, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		apiClient, err := a.client()
		if err != nil {
			return err
		}
		payload, err := call(cmd.Context(), apiClient)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				a.renderAPIError(apiErr)
			}
			return err
		}
		return a.render(payload)
	}
}

// renderAPIError prints the server's error body, or the status when it sent none.
func (a *cli) renderAPIError(apiErr *client.APIError) {
	if len(apiErr.Body) > 0 {
		_, _ = a.stderr.Write(pretty.Pretty(apiErr.Body))
		return
	}
	fmt.Fprintln(a.stderr, apiErr.Error())
}

func (a *cli) render(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	formatted := pretty.Pretty(payload)
	outputFile := strings.TrimSpace(a.settings.GetString("client.output_file"))
	if outputFile == "" {
		_, err := a.stdout.Write(formatted)
		return err
	}
	if err := os.WriteFile(outputFile, formatted, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func (a *cli) createTopicCommand() *cobra.Command {
	var name, parent string
	cmd := &cobra.Command{
		Use:   "create-topic",
		Short: "Create a topic",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return apiClient.CreateTopic(ctx, name, parent)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "Topic name")
	cmd.Flags().StringVar(&parent, "parent-topic-id", "", "Parent topic id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *cli) getTopicsCommand() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "get-topics",
		Short: "List topics",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return apiClient.ListTopics(ctx, parent)
		}),
	}
	cmd.Flags().StringVar(&parent, "parent-topic-id", "", "Only list children of this topic")
	return cmd
}

func (a *cli) getTopicCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "get-topic",
		Short: "Fetch one topic",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return apiClient.GetTopic(ctx, id)
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Topic id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *cli) updateTopicCommand() *cobra.Command {
	var id, name, parent string
	cmd := &cobra.Command{
		Use:   "update-topic",
		Short: "Rename or re-parent a topic; an empty --parent-topic-id clears the parent",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
		patch := client.TopicPatch{}
		if cmd.Flags().Changed("name") {
			patch.TopicName = &name
		}
		if cmd.Flags().Changed("parent-topic-id") {
			patch.ParentTopicID = &parent
		}
		return apiClient.UpdateTopic(ctx, id, patch)
	})
	cmd.Flags().StringVar(&id, "id", "", "Topic id")
	cmd.Flags().StringVar(&name, "name", "", "New topic name")
	cmd.Flags().StringVar(&parent, "parent-topic-id", "", "New parent topic id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *cli) deleteTopicCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete-topic",
		Short: "Delete a topic",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return nil, apiClient.DeleteTopic(ctx, id)
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Topic id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *cli) createDailyTrackCommand() *cobra.Command {
	var startTime, topicID, comment string
	cmd := &cobra.Command{
		Use:   "create-daily-track",
		Short: "Record a 30-minute slot",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
		var commentValue *string
		if cmd.Flags().Changed("comment") {
			commentValue = &comment
		}
		return apiClient.CreateDailyTrack(ctx, startTime, topicID, commentValue)
	})
	cmd.Flags().StringVar(&startTime, "start-time", "", "Slot start as RFC3339, minute 00 or 30")
	cmd.Flags().StringVar(&topicID, "topic-id", "", "Topic id")
	cmd.Flags().StringVar(&comment, "comment", "", "Free text comment")
	_ = cmd.MarkFlagRequired("start-time")
	return cmd
}

func (a *cli) getDailyTracksCommand() *cobra.Command {
	var query client.DailyTrackQuery
	cmd := &cobra.Command{
		Use:   "get-daily-tracks",
		Short: "List daily tracks",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return apiClient.ListDailyTracks(ctx, query)
		}),
	}
	cmd.Flags().StringVar(&query.StartDate, "start-date", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&query.EndDate, "end-date", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&query.TopicID, "topic-id", "", "Only list tracks for this topic")
	return cmd
}

func (a *cli) getDailyTrackCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "get-daily-track",
		Short: "Fetch one daily track",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return apiClient.GetDailyTrack(ctx, id)
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Daily track id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *cli) updateDailyTrackCommand() *cobra.Command {
	var id, topicID, comment string
	cmd := &cobra.Command{
		Use:   "update-daily-track",
		Short: "Change the topic or comment of a daily track; empty values clear them",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
		patch := client.DailyTrackPatch{}
		if cmd.Flags().Changed("topic-id") {
			patch.TopicID = &topicID
		}
		if cmd.Flags().Changed("comment") {
			patch.Comment = &comment
		}
		return apiClient.UpdateDailyTrack(ctx, id, patch)
	})
	cmd.Flags().StringVar(&id, "id", "", "Daily track id")
	cmd.Flags().StringVar(&topicID, "topic-id", "", "Topic id")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *cli) deleteDailyTrackCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete-daily-track",
		Short: "Delete a daily track",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, apiClient *client.Client) ([]byte, error) {
			return nil, apiClient.DeleteDailyTrack(ctx, id)
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Daily track id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (a *cli) issueTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token <subject>",
		Short: "Mint a bearer token with the server signing secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(a.settings.GetString("auth.signing_secret")),
				Issuer:        auth.DefaultIssuer,
				Audience:      auth.DefaultAudience,
				TokenTTL:      a.settings.GetDuration("auth.token_ttl"),
			})
			if err != nil {
				return err
			}
			token, expiresIn, err := issuer.IssueToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			payload, err := json.Marshal(tokenResponse{AccessToken: token, ExpiresIn: expiresIn, TokenType: "Bearer"})
			if err != nil {
				return err
			}
			return a.render(payload)
		},
	}
	cmd.Flags().String("signing-secret", "", "Signing secret (defaults to DAILYTRACK_AUTH_SIGNING_SECRET)")
	cmd.Flags().Duration("token-ttl", a.settings.GetDuration("auth.token_ttl"), "Token lifetime")
	if err := a.settings.BindPFlag("auth.signing_secret", cmd.Flags().Lookup("signing-secret")); err != nil {
		panic(err)
	}
	if err := a.settings.BindPFlag("auth.token_ttl", cmd.Flags().Lookup("token-ttl")); err != nil {
		panic(err)
	}
	return cmd
}
