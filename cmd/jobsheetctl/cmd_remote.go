package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/repair-jobsheets/internal/client"
	"github.com/joseph-ayodele/repair-jobsheets/internal/server"
)

var (
	loginEmail    string
	loginPassword string
	grpcAddr      string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to jobsheetd and print a session token",
	Long: `Log in to jobsheetd and print a session token.

The first attempt waits up to 60s so a sleeping backend can start; later
attempts wait 30s and 15s. Export the token as JOBSHEET_TOKEN for status.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change a job's status through jobsheetd",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatus,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <id|query>",
	Short: "Look a job up over gRPC",
	Long: `Look a job up over gRPC. An argument shaped like a job ID is fetched
directly, anything else is searched.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", getenv("JOBSHEET_EMAIL", ""), "Admin email")
	loginCmd.Flags().StringVar(&loginPassword, "password", getenv("JOBSHEET_PASSWORD", ""), "Admin password")
	lookupCmd.Flags().StringVar(&grpcAddr, "grpc", getenv("JOBSHEET_GRPC", "localhost:5001"), "Address of the gRPC lookup service")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if loginEmail == "" || loginPassword == "" {
		return fmt.Errorf("--email and --password are required")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := client.New(apiURL, client.WithLogger(logger))
	flow := client.NewLoginFlow(client.ClientLogin(c, loginEmail, loginPassword),
		client.WithFlowLogger(logger),
		client.WithObserver(func(tr client.Transition) {
			if tr.State == client.StateAttempting && tr.Attempt > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "server slow to answer, retrying (attempt %d)\n", tr.Attempt)
			}
		}),
	)
	sess, err := flow.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.Token)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	token := getenv("JOBSHEET_TOKEN", "")
	if token == "" {
		return fmt.Errorf("JOBSHEET_TOKEN is not set; run jobsheetctl login first")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := client.New(apiURL, client.WithLogger(logger), client.WithToken(token))
	job, err := c.UpdateStatus(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", job.ID, job.Status)
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	method, field := server.SearchJobsMethod, "query"
	if looksLikeJobID(args[0]) {
		method, field = server.GetJobMethod, "id"
	}
	req, err := structpb.NewStruct(map[string]any{field: args[0]})
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, req, out); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out.AsMap())
}

func looksLikeJobID(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 3 || !strings.HasPrefix(s, "RB") {
		return false
	}
	for _, r := range s[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
